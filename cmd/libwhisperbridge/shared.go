package main

import (
	"log/slog"
	"os"
	"sync"

	"github.com/chaz8081/whisper-bridge/internal/bridge"
	"github.com/chaz8081/whisper-bridge/internal/config"
	"github.com/chaz8081/whisper-bridge/internal/engine"
	"github.com/chaz8081/whisper-bridge/internal/engine/whispercpp"
)

// configEnv names an optional YAML config overriding decode settings and log level.
const configEnv = "WHISPER_BRIDGE_CONFIG"

// The one bridge per process behind the exported functions.
var (
	loader engine.Loader = whispercpp.Load

	initOnce sync.Once
	shared   *bridge.Bridge
)

func instance() *bridge.Bridge {
	initOnce.Do(func() {
		cfg := config.Default()
		if path := os.Getenv(configEnv); path != "" {
			loaded, err := config.Load(path)
			if err != nil {
				slog.Error("loading bridge config, using defaults", "path", path, "error", err)
			} else if err := loaded.Validate(); err != nil {
				slog.Error("invalid bridge config, using defaults", "path", path, "error", err)
			} else {
				cfg = loaded
			}
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: config.ParseLogLevel(cfg.LogLevel),
		})))

		b, err := bridge.New(loader, cfg.Params())
		if err != nil {
			slog.Error("bridge params rejected, using defaults", "error", err)
			b, _ = bridge.New(loader, engine.DefaultParams())
		}
		shared = b
	})
	return shared
}

func loadModel(path string) bool {
	return instance().LoadModel(path)
}

func transcribe(pcm []byte, sampleRate int) string {
	return instance().Transcribe(pcm, sampleRate)
}

func release() {
	_ = instance().Close()
}
