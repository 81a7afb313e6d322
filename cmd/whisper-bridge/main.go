package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/whisper-bridge/internal/audio"
	"github.com/chaz8081/whisper-bridge/internal/bridge"
	"github.com/chaz8081/whisper-bridge/internal/config"
	"github.com/chaz8081/whisper-bridge/internal/engine/whispercpp"
	"github.com/chaz8081/whisper-bridge/internal/models"
	"github.com/chaz8081/whisper-bridge/internal/pcm"
	"github.com/chaz8081/whisper-bridge/internal/transcribe"
)

// errUsage is returned by run for bad flags or when no action was requested.
var errUsage = errors.New("whisper-bridge: invalid usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

// run parses args and performs one action. Deferred cleanup always runs
// because failures are returned rather than exiting in place.
func run(args []string) error {
	fs := flag.NewFlagSet("whisper-bridge", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file (default: ~/.config/whisper-bridge/config.yaml)")
	modelPath := fs.String("model", "", "override model path")
	language := fs.String("language", "", "override decode language (e.g. zh, en)")
	wavPath := fs.String("wav", "", "transcribe a WAV file")
	mic := fs.Bool("mic", false, "record from the microphone for audio.record_duration and transcribe")
	record := fs.Duration("record", 0, "record from the microphone for this long and transcribe (implies -mic)")
	savePath := fs.String("save", "", "write the microphone recording to this WAV file")
	reference := fs.String("reference", "", "expected transcript; prints the error rate")
	download := fs.Bool("download", false, "make sure the model file is present, then exit")
	initConfig := fs.Bool("init-config", false, "write the default config file, then exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if path == "" {
			fmt.Println("Config already exists:", config.DefaultConfigPath())
		} else {
			fmt.Println("Wrote", path)
		}
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *language != "" {
		cfg.Decode.Language = *language
	}
	if flagSet(fs, "record") {
		*mic = true
		if *record > 0 {
			cfg.Audio.RecordDuration = *record
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *download {
		path, err := models.Ensure(ctx, cfg.Model.Path, models.Source{
			BundledPath: cfg.Model.BundledPath,
			URL:         cfg.Model.URL,
			Progress:    os.Stdout,
		})
		if err != nil {
			return fmt.Errorf("model: %w", err)
		}
		fmt.Println("Model ready:", path)
		return nil
	}

	if *wavPath == "" && !*mic {
		fs.Usage()
		return fmt.Errorf("%w: nothing to do, pass -wav FILE, -mic or -record DURATION", errUsage)
	}

	printBanner(cfg)

	b, err := bridge.New(whispercpp.Load, cfg.Params())
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}

	var opts []transcribe.Option
	opts = append(opts, transcribe.WithSource(func(s *models.Source) { s.Progress = os.Stdout }))
	if *wavPath == "" {
		recorder, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			b.Close()
			return fmt.Errorf("failed to initialize audio recorder: %w\n\nCheck that a microphone is connected and access is granted", err)
		}
		defer recorder.Close()
		opts = append(opts, transcribe.WithRecorder(recorder))
	}

	mgr := transcribe.NewManager(b, cfg.Model, opts...)
	defer mgr.Close()

	log.Println("Loading whisper model...")
	if err := mgr.LoadModel(ctx); err != nil {
		return fmt.Errorf("failed to load whisper model: %w\n\nCheck that the model file exists at: %s\nRun 'whisper-bridge -download' to fetch it", err, cfg.Model.Path)
	}

	start := time.Now()
	var text string
	if *wavPath != "" {
		text, err = mgr.TranscribeFile(*wavPath)
	} else {
		text, err = transcribeMic(ctx, mgr, cfg, *savePath)
	}
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	log.Printf("Transcribed in %s", time.Since(start).Round(time.Millisecond))

	fmt.Println(text)

	if *reference != "" {
		unit := transcribe.UnitFor(cfg.Decode.Language)
		score := transcribe.Compare(*reference, text, unit)
		name := "WER"
		if unit == transcribe.Chars {
			name = "CER"
		}
		fmt.Printf("%s: %.1f%% (sub %d, ins %d, del %d, ref %d)\n", name, score.Rate*100,
			score.Substitutions, score.Insertions, score.Deletions, score.RefTokens)
	}
	return nil
}

// flagSet reports whether name was passed on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// transcribeMic records from the microphone and optionally keeps the audio.
func transcribeMic(ctx context.Context, mgr *transcribe.Manager, cfg *config.Config, savePath string) (string, error) {
	log.Printf("Recording %s...", cfg.Audio.RecordDuration)
	text, data, err := mgr.TranscribeAudio(ctx, cfg.Audio.RecordDuration)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("recording interrupted")
		}
		return "", err
	}

	if savePath != "" {
		if err := saveWAV(savePath, data, int(cfg.Audio.SampleRate)); err != nil {
			return "", err
		}
		log.Printf("Recording saved to %s", savePath)
	}
	return text, nil
}

// saveWAV writes PCM16 mono data to path as a WAV file.
func saveWAV(path string, data []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := pcm.EncodeWAV(f, data, sampleRate); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	p := cfg.Params()
	fmt.Fprintln(os.Stderr, "=== whisper-bridge ===")
	fmt.Fprintf(os.Stderr, "  Model:    %s\n", cfg.Model.Path)
	fmt.Fprintf(os.Stderr, "  Decode:   %s, beam %d, best-of %d, lang %s, %d threads\n",
		p.Strategy, p.BeamSize, p.BestOf, p.Language, p.Threads)
	fmt.Fprintf(os.Stderr, "  Audio:    %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Fprintf(os.Stderr, "  Log:      %s\n", cfg.LogLevel)
	fmt.Fprintln(os.Stderr, "======================")
}
