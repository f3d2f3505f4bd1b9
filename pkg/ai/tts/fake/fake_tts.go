// Package fake provides a scripted Synthesizer for testing.
package fake

import (
	"context"
	"sync"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/tts"
)

// Call records one Synthesize invocation.
type Call struct {
	Text  string
	Voice string
}

// FakeTTS streams scripted chunks and records every call.
type FakeTTS struct {
	mu     sync.Mutex
	chunks []tts.Chunk
	err    error
	calls  []Call
}

// NewFakeTTS creates a fake synthesizer that emits the given audio payloads,
// one chunk per payload.
func NewFakeTTS(payloads ...[]byte) *FakeTTS {
	f := &FakeTTS{}
	for _, p := range payloads {
		f.chunks = append(f.chunks, tts.Chunk{Type: tts.ChunkAudio, Data: p})
	}
	return f
}

// WithChunks replaces the scripted chunk sequence, allowing metadata chunks
// to be interleaved.
func (f *FakeTTS) WithChunks(chunks ...tts.Chunk) *FakeTTS {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = chunks
	return f
}

// FailWith makes every subsequent call return err.
func (f *FakeTTS) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns the recorded invocations.
func (f *FakeTTS) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Synthesize implements tts.Synthesizer.
func (f *FakeTTS) Synthesize(ctx context.Context, text, voice string) (<-chan tts.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Text: text, Voice: voice})
	if f.err != nil {
		return nil, f.err
	}

	chunks := make(chan tts.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		chunks <- c
	}
	close(chunks)
	return chunks, nil
}
