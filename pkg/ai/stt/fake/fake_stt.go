// Package fake provides a scripted Transcriber for testing.
package fake

import (
	"context"
	"sync"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/stt"
)

// Call records one Transcribe invocation.
type Call struct {
	Samples []float32
	Opts    stt.Options
}

// FakeSTT returns scripted texts and records every call, including the exact
// samples it received.
type FakeSTT struct {
	mu    sync.Mutex
	texts []string
	err   error
	calls []Call
}

// NewFakeSTT creates a fake transcriber that cycles through texts.
func NewFakeSTT(texts ...string) *FakeSTT {
	if len(texts) == 0 {
		texts = []string{"fake transcription"}
	}
	return &FakeSTT{texts: texts}
}

// FailWith makes every subsequent call return err.
func (f *FakeSTT) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns the recorded invocations.
func (f *FakeSTT) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Transcribe implements stt.Transcriber.
func (f *FakeSTT) Transcribe(ctx context.Context, samples []float32, opts stt.Options) (stt.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make([]float32, len(samples))
	copy(copied, samples)
	f.calls = append(f.calls, Call{Samples: copied, Opts: opts})

	if f.err != nil {
		return stt.Result{}, f.err
	}
	text := f.texts[(len(f.calls)-1)%len(f.texts)]
	return stt.Result{
		Segments: []stt.Segment{{Text: text}},
		Info:     stt.Info{Language: opts.Language},
	}, nil
}

// ModelName implements stt.Transcriber.
func (f *FakeSTT) ModelName() string { return "fake-whisper" }
