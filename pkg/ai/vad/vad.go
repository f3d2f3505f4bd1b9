// Package vad defines the voice activity detection interface. Detection is a
// push stream: the caller feeds audio frames and receives speech boundary
// events on a channel.
package vad

import (
	"time"

	"github.com/jihoonkang/voice-agent-go/pkg/ai"
)

// Detection-specific error variables.
var (
	ErrRecoverable = ai.ErrRecoverable
	ErrFatal       = ai.ErrFatal
)

// EventType identifies a speech boundary.
type EventType int

const (
	EventStartOfSpeech EventType = iota
	EventEndOfSpeech
)

func (t EventType) String() string {
	switch t {
	case EventStartOfSpeech:
		return "start_of_speech"
	case EventEndOfSpeech:
		return "end_of_speech"
	default:
		return "unknown"
	}
}

// Event is one detected speech boundary.
type Event struct {
	Type      EventType
	Timestamp time.Time
}

// Stream is one detection session. Push and Events may be used from
// different goroutines; Close releases the session and closes Events.
type Stream interface {
	// Push feeds mono float32 samples at 16 kHz into the detector.
	Push(samples []float32) error

	// Events yields speech boundaries in detection order.
	Events() <-chan Event

	Close() error
}

// VAD creates detection streams, one per audio track.
type VAD interface {
	Stream() (Stream, error)
}
