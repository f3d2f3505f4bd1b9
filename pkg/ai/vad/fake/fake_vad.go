// Package fake provides a test-driven VAD whose speech boundaries are
// injected by the test rather than detected.
package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/vad"
)

// FakeVAD hands out FakeStreams and remembers them so tests can drive events.
type FakeVAD struct {
	mu      sync.Mutex
	streams []*FakeStream
}

// NewFakeVAD creates a fake detector.
func NewFakeVAD() *FakeVAD {
	return &FakeVAD{}
}

// Stream implements vad.VAD.
func (f *FakeVAD) Stream() (vad.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &FakeStream{events: make(chan vad.Event, 16)}
	f.streams = append(f.streams, st)
	return st, nil
}

// Streams returns every stream handed out so far.
func (f *FakeVAD) Streams() []*FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeStream, len(f.streams))
	copy(out, f.streams)
	return out
}

// FakeStream records pushed samples and emits whatever events the test
// injects through EmitStart and EmitEnd.
type FakeStream struct {
	mu     sync.Mutex
	pushed [][]float32
	closed bool
	events chan vad.Event
}

// Push implements vad.Stream.
func (s *FakeStream) Push(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("fake vad stream closed: %w", vad.ErrFatal)
	}
	copied := make([]float32, len(samples))
	copy(copied, samples)
	s.pushed = append(s.pushed, copied)
	return nil
}

// Pushed returns the recorded sample batches.
func (s *FakeStream) Pushed() [][]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]float32, len(s.pushed))
	copy(out, s.pushed)
	return out
}

// EmitStart injects a start-of-speech event.
func (s *FakeStream) EmitStart(at time.Time) {
	s.events <- vad.Event{Type: vad.EventStartOfSpeech, Timestamp: at}
}

// EmitEnd injects an end-of-speech event.
func (s *FakeStream) EmitEnd(at time.Time) {
	s.events <- vad.Event{Type: vad.EventEndOfSpeech, Timestamp: at}
}

// Events implements vad.Stream.
func (s *FakeStream) Events() <-chan vad.Event { return s.events }

// Close implements vad.Stream.
func (s *FakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}
