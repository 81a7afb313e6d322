// Package audio captures microphone input as signed 16-bit little-endian PCM,
// the format the bridge accepts.
package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// Recorder captures audio from the default microphone into a PCM16 buffer.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate uint32
	channels   uint32

	mu        sync.Mutex
	buf       []byte
	recording bool
}

// NewRecorder creates a new audio recorder. Call Close() when done.
func NewRecorder(sampleRate, channels uint32) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	r := &Recorder{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
	}

	return r, nil
}

// SampleRate returns the capture rate in Hz.
func (r *Recorder) SampleRate() int {
	return int(r.sampleRate)
}

// Start begins capturing audio from the default microphone.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return fmt.Errorf("already recording")
	}
	r.buf = r.buf[:0] // reset buffer but keep capacity
	r.recording = true
	r.mu.Unlock()

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatS16
	deviceCfg.Capture.Channels = r.channels
	deviceCfg.SampleRate = r.sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: r.onData,
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return fmt.Errorf("initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return fmt.Errorf("starting capture device: %w", err)
	}

	r.mu.Lock()
	r.device = device
	r.mu.Unlock()

	return nil
}

// Stop ends the audio capture and returns the recorded PCM16 bytes,
// downmixed to mono when capturing more than one channel.
func (r *Recorder) Stop() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}

	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false

	return downmix(r.buf, int(r.channels))
}

// Record captures d of audio, or less if ctx is cancelled first.
func (r *Recorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	if err := r.Start(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		r.Stop()
		return nil, ctx.Err()
	}

	return r.Stop(), nil
}

// IsRecording returns whether the recorder is currently capturing audio.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false
	r.mu.Unlock()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}

	return nil
}

// onData is the malgo callback invoked when audio data is available.
// pSample holds interleaved PCM16 frames.
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	n := int(frameCount * r.channels * 2)
	if n > len(pSample) {
		n = len(pSample)
	}

	r.mu.Lock()
	r.buf = append(r.buf, pSample[:n]...)
	r.mu.Unlock()
}

// downmix averages interleaved PCM16 channels into a new mono buffer.
// A trailing partial frame is dropped.
func downmix(data []byte, channels int) []byte {
	if channels <= 1 {
		out := make([]byte, len(data)&^1)
		copy(out, data)
		return out
	}

	frameBytes := channels * 2
	frames := len(data) / frameBytes
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*2
			sum += int(int16(uint16(data[off]) | uint16(data[off+1])<<8))
		}
		m := int16(sum / channels)
		out[i*2] = byte(m)
		out[i*2+1] = byte(uint16(m) >> 8)
	}
	return out
}
