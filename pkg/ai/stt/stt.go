// Package stt defines the transcription interface consumed by the voice
// pipeline. Transcribers take mono float32 audio at 16 kHz and are invoked
// through an Executor so model inference never runs unbounded in parallel.
package stt

import (
	"context"
	"strings"
)

// Options control a single transcription request. Engines forward what their
// protocol can express and document the rest; the whisper-server backend
// cannot transmit VADFilter or LogProbThreshold.
type Options struct {
	Language                string // language hint, e.g. "ko"
	BeamSize                int
	VADFilter               bool // leave false when an upstream VAD already gated the audio
	LogProbThreshold        float64
	ConditionOnPreviousText bool
}

// DefaultOptions returns the options the pipeline uses: Korean hint, beam 5,
// no VAD pre-filter, a permissive log-probability threshold, no conditioning
// on previous text.
func DefaultOptions() Options {
	return Options{
		Language:         "ko",
		BeamSize:         5,
		LogProbThreshold: -2.0,
	}
}

// Segment is one recognized span of speech.
type Segment struct {
	Text string
}

// Info carries metadata about a completed transcription.
type Info struct {
	Language string
}

// Result is the output of one transcription call.
type Result struct {
	Segments []Segment
	Info     Info
}

// Text joins the trimmed segment texts with single spaces.
func (r Result) Text() string {
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Transcriber converts 16 kHz mono float32 audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error)
	ModelName() string
}
