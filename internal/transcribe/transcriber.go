// Package transcribe drives the bridge end to end: it makes sure the model
// file exists, loads it, and feeds the bridge audio from WAV files or the
// microphone.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chaz8081/whisper-bridge/internal/bridge"
	"github.com/chaz8081/whisper-bridge/internal/config"
	"github.com/chaz8081/whisper-bridge/internal/models"
	"github.com/chaz8081/whisper-bridge/internal/pcm"
)

var (
	// ErrModelLoad is returned when the bridge rejects the model file.
	ErrModelLoad = errors.New("transcribe: model failed to load")
	// ErrEmptyAudio is returned when a file or recording holds no samples.
	ErrEmptyAudio = errors.New("transcribe: audio is empty")
	// ErrNoRecorder is returned by TranscribeAudio when no recorder was configured.
	ErrNoRecorder = errors.New("transcribe: no recorder configured")
)

// DefaultRecordDuration is used by TranscribeAudio when no duration is given.
const DefaultRecordDuration = 3 * time.Second

// Recorder captures a fixed stretch of PCM16 mono audio.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) ([]byte, error)
	SampleRate() int
}

// EnsureFunc makes a model file available at dest.
type EnsureFunc func(ctx context.Context, dest string, src models.Source) (string, error)

// Manager ties a bridge to a model location and optional microphone.
type Manager struct {
	bridge   *bridge.Bridge
	model    config.ModelConfig
	recorder Recorder
	ensure   EnsureFunc
	source   models.Source
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder enables TranscribeAudio.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithEnsure replaces models.Ensure, mainly for tests.
func WithEnsure(fn EnsureFunc) Option {
	return func(m *Manager) { m.ensure = fn }
}

// WithSource overrides fields of the model source built from config,
// such as the progress writer or HTTP client.
func WithSource(fn func(*models.Source)) Option {
	return func(m *Manager) { fn(&m.source) }
}

// NewManager creates a Manager over b for the configured model.
func NewManager(b *bridge.Bridge, model config.ModelConfig, opts ...Option) *Manager {
	m := &Manager{
		bridge: b,
		model:  model,
		ensure: models.Ensure,
		source: models.Source{
			BundledPath: model.BundledPath,
			URL:         model.URL,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadModel makes sure the model file is present and loads it into the bridge.
func (m *Manager) LoadModel(ctx context.Context) error {
	path, err := m.ensure(ctx, m.model.Path, m.source)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	start := time.Now()
	if !m.bridge.LoadModel(path) {
		return fmt.Errorf("%w: %s", ErrModelLoad, path)
	}
	slog.Info("model ready", "path", path, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// TranscribeFile decodes a WAV file and transcribes it. Bridge sentinel
// strings are returned as text, not errors.
func (m *Manager) TranscribeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("transcribe: open audio: %w", err)
	}
	defer f.Close()

	a, err := pcm.DecodeWAV(f)
	if err != nil {
		return "", fmt.Errorf("transcribe: %s: %w", path, err)
	}
	if pcm.SampleCount(len(a.PCM)) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyAudio, path)
	}

	slog.Debug("transcribing file", "path", path, "duration", a.Duration(), "sample_rate", a.SampleRate)
	return m.bridge.Transcribe(a.PCM, a.SampleRate), nil
}

// TranscribeAudio records d of microphone audio and transcribes it. A
// non-positive d records DefaultRecordDuration. It returns the captured PCM
// alongside the text so callers can keep it.
func (m *Manager) TranscribeAudio(ctx context.Context, d time.Duration) (string, []byte, error) {
	if m.recorder == nil {
		return "", nil, ErrNoRecorder
	}
	if d <= 0 {
		d = DefaultRecordDuration
	}

	data, err := m.recorder.Record(ctx, d)
	if err != nil {
		return "", nil, fmt.Errorf("transcribe: record: %w", err)
	}
	if pcm.SampleCount(len(data)) == 0 {
		return "", nil, ErrEmptyAudio
	}

	rate := m.recorder.SampleRate()
	slog.Debug("transcribing recording", "duration", pcm.Duration(len(data), rate))
	return m.bridge.Transcribe(data, rate), data, nil
}

// Close releases the bridge's model.
func (m *Manager) Close() error {
	return m.bridge.Close()
}
