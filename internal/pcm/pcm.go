// Package pcm converts between signed 16-bit little-endian PCM, normalised
// float32 samples, and WAV files.
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BytesPerSample is the width of one PCM16 sample.
const BytesPerSample = 2

// ErrNotWAV is returned by DecodeWAV when the input is not a RIFF/WAVE file.
var ErrNotWAV = errors.New("pcm: not a valid WAV file")

// Audio is mono PCM16 audio with its sample rate.
type Audio struct {
	PCM        []byte
	SampleRate int
}

// Duration returns the playback length of the audio.
func (a Audio) Duration() time.Duration {
	return Duration(len(a.PCM), a.SampleRate)
}

// SampleCount returns how many whole PCM16 samples fit in n bytes.
// A trailing odd byte is dropped.
func SampleCount(n int) int {
	return n / BytesPerSample
}

// ToFloat32 reinterprets data as little-endian int16 samples and normalises
// each one by 1/32768, so -32768 maps to -1.0 and 32767 to just under 1.0.
func ToFloat32(data []byte) []float32 {
	n := SampleCount(len(data))
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

// FromFloat32 scales samples in [-1.0, 1.0] back to PCM16. Out-of-range
// values are clamped.
func FromFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, f := range samples {
		v := math.Round(float64(f) * 32768.0)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// Duration returns how long byteLen bytes of mono PCM16 last at sampleRate.
func Duration(byteLen, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := SampleCount(byteLen)
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// DecodeWAV reads an integer PCM WAV file, downmixes it to mono and rescales
// it to 16 bits.
func DecodeWAV(r io.ReadSeeker) (Audio, error) {
	dec := wav.NewDecoder(r)
	// IsValidFile rejects zero-length audio, which callers report separately.
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Audio{}, fmt.Errorf("%w: %w", ErrNotWAV, err)
	}
	if dec.NumChans < 1 || dec.BitDepth < 8 {
		return Audio{}, ErrNotWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Audio{}, fmt.Errorf("pcm: decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return Audio{}, fmt.Errorf("pcm: wav has no channel information")
	}

	channels := buf.Format.NumChannels
	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	frames := len(buf.Data) / channels
	out := make([]byte, frames*BytesPerSample)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		s := rescale(sum/channels, depth)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}

	return Audio{PCM: out, SampleRate: buf.Format.SampleRate}, nil
}

// rescale converts a sample of the given bit depth to int16.
func rescale(v, depth int) int16 {
	switch {
	case depth == 8:
		// 8-bit WAV is unsigned.
		return int16((v - 128) << 8)
	case depth > 16:
		return int16(v >> (depth - 16))
	case depth < 16:
		return int16(v << (16 - depth))
	default:
		return int16(v)
	}
}

// EncodeWAV writes mono PCM16 data as a WAV file.
func EncodeWAV(w io.WriteSeeker, data []byte, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("pcm: sample rate must be > 0, got %d", sampleRate)
	}

	n := SampleCount(len(data))
	ints := make([]int, n)
	for i := 0; i < n; i++ {
		ints[i] = int(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("pcm: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("pcm: close wav encoder: %w", err)
	}
	return nil
}
