package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/whisper-bridge/internal/engine"
)

// Config holds all application configuration.
type Config struct {
	Model    ModelConfig  `yaml:"model"`
	Decode   DecodeConfig `yaml:"decode"`
	Audio    AudioConfig  `yaml:"audio"`
	LogLevel string       `yaml:"log_level"`
}

// ModelConfig says where the ggml model lives and how to obtain it.
type ModelConfig struct {
	Path        string `yaml:"path"`
	BundledPath string `yaml:"bundled_path"` // copied to Path when Path is missing
	URL         string `yaml:"url"`          // downloaded when neither file exists
}

// DecodeConfig holds the decoder settings that may be overridden.
// Everything else comes from engine.DefaultParams.
type DecodeConfig struct {
	Language      string  `yaml:"language"`
	Threads       int     `yaml:"threads"`
	BeamSize      int     `yaml:"beam_size"`
	BestOf        int     `yaml:"best_of"`
	Temperature   float32 `yaml:"temperature"`
	PrintProgress bool    `yaml:"print_progress"`
}

// AudioConfig holds microphone capture settings.
type AudioConfig struct {
	SampleRate     uint32        `yaml:"sample_rate"`
	Channels       uint32        `yaml:"channels"`
	RecordDuration time.Duration `yaml:"record_duration"`
}

const (
	appName          = "whisper-bridge"
	defaultModelName = "ggml-tiny.bin"
	defaultModelURL  = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/" + defaultModelName
)

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory models are stored in.
func DefaultModelsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName, "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	p := engine.DefaultParams()
	return &Config{
		Model: ModelConfig{
			Path: filepath.Join(DefaultModelsDir(), defaultModelName),
			URL:  defaultModelURL,
		},
		Decode: DecodeConfig{
			Language:    p.Language,
			Threads:     p.Threads,
			BeamSize:    p.BeamSize,
			BestOf:      p.BestOf,
			Temperature: p.Temperature,
		},
		Audio: AudioConfig{
			SampleRate:     engine.SampleRate,
			Channels:       1,
			RecordDuration: 3 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in model paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Model.Path = expandTilde(cfg.Model.Path)
	cfg.Model.BundledPath = expandTilde(cfg.Model.BundledPath)

	return cfg, nil
}

// Params returns the decode parameters: the fixed defaults with the
// configured overrides applied.
func (c *Config) Params() engine.Params {
	p := engine.DefaultParams()
	if c.Decode.Language != "" {
		p.Language = c.Decode.Language
	}
	if c.Decode.Threads > 0 {
		p.Threads = c.Decode.Threads
	}
	if c.Decode.BeamSize > 0 {
		p.BeamSize = c.Decode.BeamSize
	}
	if c.Decode.BestOf > 0 {
		p.BestOf = c.Decode.BestOf
	}
	p.Temperature = c.Decode.Temperature
	p.PrintProgress = c.Decode.PrintProgress
	return p
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model.path must not be empty")
	}

	if c.Decode.Threads < 0 {
		return fmt.Errorf("decode.threads must be >= 0, got %d", c.Decode.Threads)
	}
	if c.Decode.BeamSize < 0 {
		return fmt.Errorf("decode.beam_size must be >= 0, got %d", c.Decode.BeamSize)
	}
	if c.Decode.BestOf < 0 {
		return fmt.Errorf("decode.best_of must be >= 0, got %d", c.Decode.BestOf)
	}
	if c.Decode.Temperature < 0 {
		return fmt.Errorf("decode.temperature must be >= 0, got %v", c.Decode.Temperature)
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if c.Audio.RecordDuration <= 0 {
		return fmt.Errorf("audio.record_duration must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level to a slog.Level. Unknown values
// default to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WriteDefault writes the default config to DefaultConfigPath. It returns
// the path written, or "" if a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	header := "# " + appName + " configuration\n# Generated with defaults; edit as needed.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
