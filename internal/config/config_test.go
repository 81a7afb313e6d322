package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/whisper-bridge/internal/engine"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Model.Path == "" {
		t.Error("Model.Path should not be empty")
	}
	if !strings.HasSuffix(cfg.Model.Path, "ggml-tiny.bin") {
		t.Errorf("Model.Path = %q, want ggml-tiny.bin", cfg.Model.Path)
	}
	if cfg.Model.URL == "" {
		t.Error("Model.URL should not be empty")
	}
	if cfg.Decode.Language != "zh" {
		t.Errorf("Decode.Language = %q, want %q", cfg.Decode.Language, "zh")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want 1", cfg.Audio.Channels)
	}
	if cfg.Audio.RecordDuration != 3*time.Second {
		t.Errorf("Audio.RecordDuration = %v, want 3s", cfg.Audio.RecordDuration)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestDefaultParamsMatchEngine(t *testing.T) {
	if got, want := Default().Params(), engine.DefaultParams(); got != want {
		t.Errorf("Default().Params() = %+v, want %+v", got, want)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
model:
  path: /tmp/test-model.bin
  bundled_path: /opt/assets/ggml-tiny.bin
decode:
  language: en
  threads: 8
  beam_size: 3
audio:
  sample_rate: 44100
  channels: 2
  record_duration: 5s
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model.Path != "/tmp/test-model.bin" {
		t.Errorf("Model.Path = %q, want %q", cfg.Model.Path, "/tmp/test-model.bin")
	}
	if cfg.Model.BundledPath != "/opt/assets/ggml-tiny.bin" {
		t.Errorf("Model.BundledPath = %q", cfg.Model.BundledPath)
	}
	if cfg.Model.URL != defaultModelURL {
		t.Errorf("Model.URL = %q, want default %q", cfg.Model.URL, defaultModelURL)
	}
	if cfg.Decode.Language != "en" {
		t.Errorf("Decode.Language = %q, want %q", cfg.Decode.Language, "en")
	}
	if cfg.Decode.Threads != 8 {
		t.Errorf("Decode.Threads = %d, want 8", cfg.Decode.Threads)
	}
	if cfg.Decode.BestOf != 5 {
		t.Errorf("Decode.BestOf = %d, want default 5", cfg.Decode.BestOf)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 2 {
		t.Errorf("Audio.Channels = %d, want 2", cfg.Audio.Channels)
	}
	if cfg.Audio.RecordDuration != 5*time.Second {
		t.Errorf("Audio.RecordDuration = %v, want 5s", cfg.Audio.RecordDuration)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}

	p := cfg.Params()
	if p.Language != "en" || p.Threads != 8 || p.BeamSize != 3 {
		t.Errorf("Params() = %+v, want language en, 8 threads, beam 3", p)
	}
	if p.Strategy != engine.BeamSearch || !p.SuppressBlank || p.Patience != -1 {
		t.Errorf("Params() lost fixed settings: %+v", p)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
model:
  path: ~/models/test.bin
  bundled_path: ~/assets/test.bin
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := filepath.Join(home, "models/test.bin")
	if cfg.Model.Path != expected {
		t.Errorf("Model.Path = %q, want %q", cfg.Model.Path, expected)
	}
	expected = filepath.Join(home, "assets/test.bin")
	if cfg.Model.BundledPath != expected {
		t.Errorf("Model.BundledPath = %q, want %q", cfg.Model.BundledPath, expected)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("model: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty model path",
			modify:  func(c *Config) { c.Model.Path = "" },
			wantErr: true,
		},
		{
			name:    "negative threads",
			modify:  func(c *Config) { c.Decode.Threads = -1 },
			wantErr: true,
		},
		{
			name:    "negative beam size",
			modify:  func(c *Config) { c.Decode.BeamSize = -2 },
			wantErr: true,
		},
		{
			name:    "negative best of",
			modify:  func(c *Config) { c.Decode.BestOf = -1 },
			wantErr: true,
		},
		{
			name:    "negative temperature",
			modify:  func(c *Config) { c.Decode.Temperature = -0.1 },
			wantErr: true,
		},
		{
			name:    "zero sample rate",
			modify:  func(c *Config) { c.Audio.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "zero channels",
			modify:  func(c *Config) { c.Audio.Channels = 0 },
			wantErr: true,
		},
		{
			name:    "zero record duration",
			modify:  func(c *Config) { c.Audio.RecordDuration = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "whisper-bridge", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# whisper-bridge") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Decode.Language != "zh" {
		t.Errorf("written config Decode.Language = %q, want %q", cfg.Decode.Language, "zh")
	}
	if cfg.Audio.RecordDuration != 3*time.Second {
		t.Errorf("written config Audio.RecordDuration = %v, want 3s", cfg.Audio.RecordDuration)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "whisper-bridge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("model:\n  path: /custom/model.bin\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
