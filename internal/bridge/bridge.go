// Package bridge exposes a speech-to-text decoder through two calls:
// LoadModel(path) and Transcribe(pcm, sampleRate). Failures are reported as
// fixed sentinel strings so callers across a language boundary only ever see
// a bool and a string.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chaz8081/whisper-bridge/internal/engine"
	"github.com/chaz8081/whisper-bridge/internal/pcm"
)

// Sentinel results returned by Transcribe in place of errors.
const (
	NotLoadedText = "Model not loaded"
	FailedText    = "Transcription failed"
)

var (
	// ErrModelNotLoaded is returned by Process when no model is loaded.
	ErrModelNotLoaded = errors.New("bridge: model not loaded")
	// ErrTranscriptionFailed wraps decoder failures.
	ErrTranscriptionFailed = errors.New("bridge: transcription failed")
)

// Bridge owns at most one loaded decoder. Methods are serialized internally.
type Bridge struct {
	load   engine.Loader
	params engine.Params

	mu      sync.Mutex
	decoder engine.Decoder
}

// New creates a Bridge that loads models with load and decodes with params.
// No model is loaded until LoadModel is called.
func New(load engine.Loader, params engine.Params) (*Bridge, error) {
	if load == nil {
		return nil, fmt.Errorf("bridge: nil loader")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	return &Bridge{load: load, params: params}, nil
}

// Params returns the decode configuration.
func (b *Bridge) Params() engine.Params {
	return b.params
}

// LoadModel releases any loaded model and initialises a new one from path.
// It reports whether the new model is usable. After a failed load no model
// is loaded.
func (b *Bridge) LoadModel(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.release()

	dec, err := b.load(path)
	if err != nil {
		slog.Error("loading model failed", "path", path, "error", err)
		return false
	}
	if dec == nil {
		slog.Error("loading model failed", "path", path, "error", engine.ErrInitFailed)
		return false
	}

	b.decoder = dec
	slog.Info("model loaded", "path", path)
	return true
}

// Loaded reports whether a model is currently loaded.
func (b *Bridge) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.decoder != nil
}

// Transcribe converts little-endian PCM16 mono audio to text. It returns
// NotLoadedText when no model is loaded and FailedText when decoding fails.
func (b *Bridge) Transcribe(data []byte, sampleRate int) string {
	if sampleRate != engine.SampleRate {
		slog.Warn("sample rate differs from decoder rate, audio is not resampled",
			"sample_rate", sampleRate, "expected", engine.SampleRate)
	}

	text, err := b.Process(pcm.ToFloat32(data))
	switch {
	case err == nil:
		return text
	case errors.Is(err, ErrModelNotLoaded):
		return NotLoadedText
	default:
		slog.Error("transcription failed", "error", err)
		return FailedText
	}
}

// Process decodes normalised float32 samples and concatenates the segment
// texts in order.
func (b *Bridge) Process(samples []float32) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.decoder == nil {
		return "", ErrModelNotLoaded
	}
	// whisper_full yields no segments for input this short.
	if len(samples) == 0 {
		return "", nil
	}

	if err := b.decoder.Full(b.params, samples); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	n := b.decoder.NumSegments()
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(b.decoder.SegmentText(i))
	}
	slog.Debug("transcribed", "samples", len(samples), "segments", n)

	return sb.String(), nil
}

// Close releases the loaded model, if any. It is safe to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.release()
	return nil
}

// release frees the current decoder. Callers hold b.mu.
func (b *Bridge) release() {
	if b.decoder != nil {
		b.decoder.Free()
		b.decoder = nil
	}
}
