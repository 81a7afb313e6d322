// Package engine defines the narrow decoder interface the bridge drives:
// init from file, run full inference, read segment text, free.
package engine

import (
	"errors"
	"fmt"
)

// SampleRate is the input rate the decoder expects, in Hz.
const SampleRate = 16000

// ErrInitFailed is returned by a Loader when no usable model handle could be created.
var ErrInitFailed = errors.New("engine: model init failed")

// Strategy selects the decoder sampling strategy.
type Strategy int

const (
	// Greedy picks the most likely token at every step.
	Greedy Strategy = iota
	// BeamSearch keeps BeamSize candidate sequences.
	BeamSearch
)

func (s Strategy) String() string {
	switch s {
	case Greedy:
		return "greedy"
	case BeamSearch:
		return "beam_search"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Params is the decode configuration handed to Decoder.Full.
type Params struct {
	Strategy      Strategy
	BeamSize      int
	BestOf        int
	Patience      float32 // -1 disables
	Temperature   float32
	Language      string
	Threads       int
	Timestamps    bool
	SuppressBlank bool
	SuppressNST   bool // non-speech tokens
	NoSpeechThold float32
	MaxInitialTS  float32
	LengthPenalty float32 // -1 uses the decoder default
	PrintProgress bool
}

// DefaultParams returns the fixed decode configuration: beam search of width 5,
// best-of 5, no patience, zero temperature, Chinese, timestamps on,
// blank suppression on.
func DefaultParams() Params {
	return Params{
		Strategy:      BeamSearch,
		BeamSize:      5,
		BestOf:        5,
		Patience:      -1,
		Temperature:   0,
		Language:      "zh",
		Threads:       4,
		Timestamps:    true,
		SuppressBlank: true,
		SuppressNST:   false,
		NoSpeechThold: 0.6,
		MaxInitialTS:  1.0,
		LengthPenalty: -1,
	}
}

// Validate checks the params for values the decoder would reject or misuse.
func (p Params) Validate() error {
	switch p.Strategy {
	case Greedy, BeamSearch:
	default:
		return fmt.Errorf("engine: unknown strategy %v", p.Strategy)
	}
	if p.BeamSize <= 0 {
		return fmt.Errorf("engine: beam size must be > 0, got %d", p.BeamSize)
	}
	if p.BestOf <= 0 {
		return fmt.Errorf("engine: best_of must be > 0, got %d", p.BestOf)
	}
	if p.Temperature < 0 {
		return fmt.Errorf("engine: temperature must be >= 0, got %v", p.Temperature)
	}
	if p.Language == "" {
		return fmt.Errorf("engine: language must not be empty")
	}
	if p.Threads <= 0 {
		return fmt.Errorf("engine: threads must be > 0, got %d", p.Threads)
	}
	return nil
}

// Decoder is a loaded model instance. Implementations are not safe for
// concurrent use; callers serialize access.
type Decoder interface {
	// Full runs inference over mono float32 samples at SampleRate.
	Full(params Params, samples []float32) error
	// NumSegments reports how many text segments the last Full produced.
	NumSegments() int
	// SegmentText returns the text of segment i from the last Full.
	SegmentText(i int) string
	// Free releases the model. Further calls are invalid.
	Free()
}

// Loader creates a Decoder from a model file.
type Loader func(path string) (Decoder, error)
