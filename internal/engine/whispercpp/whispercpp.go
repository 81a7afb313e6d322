// Package whispercpp implements engine.Decoder on top of the whisper.cpp
// low-level Go bindings.
package whispercpp

/*
#include <whisper.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go"

	"github.com/chaz8081/whisper-bridge/internal/engine"
)

// ErrEmptyAudio is returned by Full when there are no samples to decode.
var ErrEmptyAudio = errors.New("whispercpp: no samples")

// Decoder wraps a whisper_context.
type Decoder struct {
	ctx *whisper.Context
}

// Compile-time interface satisfaction check.
var _ engine.Decoder = (*Decoder)(nil)

// Load initialises a whisper context from a ggml model file.
func Load(path string) (engine.Decoder, error) {
	ctx := whisper.Whisper_init(path)
	if ctx == nil {
		return nil, fmt.Errorf("whispercpp: load %q: %w", path, engine.ErrInitFailed)
	}
	return &Decoder{ctx: ctx}, nil
}

// Full runs whisper_full over samples with params applied on top of
// whisper_full_default_params for the chosen strategy.
func (d *Decoder) Full(p engine.Params, samples []float32) error {
	if d.ctx == nil {
		return fmt.Errorf("whispercpp: decoder freed")
	}
	if len(samples) == 0 {
		return ErrEmptyAudio
	}

	params, err := d.buildParams(p)
	if err != nil {
		return err
	}

	if err := d.ctx.Whisper_full(params, samples, nil, nil, nil); err != nil {
		return fmt.Errorf("whispercpp: full: %w", err)
	}
	return nil
}

func (d *Decoder) buildParams(p engine.Params) (whisper.Params, error) {
	strategy := whisper.SAMPLING_GREEDY
	if p.Strategy == engine.BeamSearch {
		strategy = whisper.SAMPLING_BEAM_SEARCH
	}
	params := d.ctx.Whisper_full_default_params(strategy)

	id := d.ctx.Whisper_lang_id(p.Language)
	if id < 0 {
		return params, fmt.Errorf("whispercpp: unsupported language %q", p.Language)
	}
	if err := params.SetLanguage(id); err != nil {
		return params, fmt.Errorf("whispercpp: set language %q: %w", p.Language, err)
	}

	params.SetThreads(p.Threads)
	params.SetBeamSize(p.BeamSize)
	params.SetTemperature(p.Temperature)
	params.SetPrintTimestamps(p.Timestamps)
	params.SetPrintProgress(p.PrintProgress)
	params.SetAudioCtx(0)

	// The bindings have no setters for these, so write the C struct directly.
	raw := (*C.struct_whisper_full_params)(unsafe.Pointer(&params))
	raw.no_timestamps = C.bool(!p.Timestamps)
	raw.suppress_blank = C.bool(p.SuppressBlank)
	raw.suppress_nst = C.bool(p.SuppressNST)
	raw.no_speech_thold = C.float(p.NoSpeechThold)
	raw.max_initial_ts = C.float(p.MaxInitialTS)
	raw.length_penalty = C.float(p.LengthPenalty)
	raw.greedy.best_of = C.int(p.BestOf)
	raw.beam_search.patience = C.float(p.Patience)

	return params, nil
}

// NumSegments returns whisper_full_n_segments.
func (d *Decoder) NumSegments() int {
	if d.ctx == nil {
		return 0
	}
	return d.ctx.Whisper_full_n_segments()
}

// SegmentText returns whisper_full_get_segment_text(i).
func (d *Decoder) SegmentText(i int) string {
	if d.ctx == nil {
		return ""
	}
	return d.ctx.Whisper_full_get_segment_text(i)
}

// Free releases the whisper context. Safe to call more than once.
func (d *Decoder) Free() {
	if d.ctx != nil {
		d.ctx.Whisper_free()
		d.ctx = nil
	}
}
