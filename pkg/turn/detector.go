// Package turn implements end-of-utterance detection over VAD speech
// boundaries. The detector is a per-participant state machine: it pads the
// start of speech with recently buffered frames, absorbs mid-sentence pauses
// with a silence debounce, rejects too-short segments, and flags barge-in
// while the agent is playing audio.
package turn

import (
	"sync"
	"time"

	"github.com/jihoonkang/voice-agent-go/pkg/rtc"
)

// State of the detector.
type State int

const (
	// StateIdle means no user speech is in progress.
	StateIdle State = iota
	// StateSpeaking means a segment is being captured.
	StateSpeaking
	// StateDebouncing means speech ended and the commit timer is pending.
	StateDebouncing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StateDebouncing:
		return "debouncing"
	default:
		return "unknown"
	}
}

// Default thresholds, overridable through configuration.
const (
	DefaultSilenceWindow      = 800 * time.Millisecond
	DefaultMinSpeech          = 300 * time.Millisecond
	DefaultPrefixPadding      = 300 * time.Millisecond
	DefaultInterruptThreshold = 500 * time.Millisecond
)

// Config parameterizes a Detector.
type Config struct {
	// SilenceWindow is the debounce after END_OF_SPEECH before a segment
	// commits. Speech resuming within the window merges into the segment.
	SilenceWindow time.Duration

	// MinSpeech rejects segments shorter than this (coughs, clicks).
	MinSpeech time.Duration

	// PrefixPadding bounds the age of pre-speech frames prepended to a
	// segment to recover the leading phoneme VAD clips.
	PrefixPadding time.Duration

	// InterruptThreshold is the minimum utterance length that counts as
	// barge-in while the agent is speaking.
	InterruptThreshold time.Duration

	// AgentSpeaking reports whether agent playback is active. Sampled at
	// START_OF_SPEECH.
	AgentSpeaking func() bool

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SilenceWindow:      DefaultSilenceWindow,
		MinSpeech:          DefaultMinSpeech,
		PrefixPadding:      DefaultPrefixPadding,
		InterruptThreshold: DefaultInterruptThreshold,
	}
}

func (c *Config) fillDefaults() {
	if c.SilenceWindow <= 0 {
		c.SilenceWindow = DefaultSilenceWindow
	}
	if c.MinSpeech <= 0 {
		c.MinSpeech = DefaultMinSpeech
	}
	if c.PrefixPadding <= 0 {
		c.PrefixPadding = DefaultPrefixPadding
	}
	if c.InterruptThreshold <= 0 {
		c.InterruptThreshold = DefaultInterruptThreshold
	}
	if c.AgentSpeaking == nil {
		c.AgentSpeaking = func() bool { return false }
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Segment is one committed user utterance: prefix frames plus everything
// captured until the debounce expired.
type Segment struct {
	Frames      []*rtc.AudioFrame
	Start       time.Time
	End         time.Time
	Interrupted bool
}

// Duration is the captured speech span (prefix excluded).
func (s *Segment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Detector is the turn state machine. All methods are safe for concurrent
// use; the commit callback runs on the timer goroutine without the detector
// lock held.
type Detector struct {
	cfg      Config
	onCommit func(Segment)

	mu        sync.Mutex
	state     State
	prefix    []*rtc.AudioFrame
	segment   Segment
	agentWas  bool
	commitGen int
	commit    *time.Timer
}

// NewDetector creates a detector that invokes onCommit with each finished
// segment.
func NewDetector(cfg Config, onCommit func(Segment)) *Detector {
	cfg.fillDefaults()
	return &Detector{cfg: cfg, onCommit: onCommit}
}

// State returns the current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// PushFrame routes one audio frame. While idle it lands in the prefix ring;
// during capture it extends the segment.
func (d *Detector) PushFrame(frame *rtc.AudioFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateIdle {
		d.prefix = append(d.prefix, frame)
		d.evictPrefixLocked()
		return
	}
	d.segment.Frames = append(d.segment.Frames, frame)
}

// evictPrefixLocked drops prefix frames older than PrefixPadding.
func (d *Detector) evictPrefixLocked() {
	cutoff := d.cfg.Now().Add(-d.cfg.PrefixPadding)
	keep := 0
	for keep < len(d.prefix) && d.prefix[keep].Timestamp.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		d.prefix = append(d.prefix[:0], d.prefix[keep:]...)
	}
}

// OnSpeechStart handles a START_OF_SPEECH boundary.
func (d *Detector) OnSpeechStart(ts time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateIdle:
		d.evictPrefixLocked()
		frames := make([]*rtc.AudioFrame, len(d.prefix))
		copy(frames, d.prefix)
		d.prefix = d.prefix[:0]
		d.segment = Segment{Frames: frames, Start: ts}
		d.agentWas = d.cfg.AgentSpeaking()
		d.state = StateSpeaking

	case StateDebouncing:
		// Speaker resumed before the debounce fired: same segment, same
		// prefix, no fresh padding.
		d.cancelCommitLocked()
		if d.cfg.AgentSpeaking() {
			d.agentWas = true
		}
		d.state = StateSpeaking

	case StateSpeaking:
		// Duplicate boundary from the VAD; nothing to do.
	}
}

// OnSpeechEnd handles an END_OF_SPEECH boundary.
func (d *Detector) OnSpeechEnd(ts time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateSpeaking {
		return
	}
	d.segment.End = ts

	duration := d.segment.Duration()
	if duration < d.cfg.MinSpeech {
		d.segment = Segment{}
		d.state = StateIdle
		return
	}

	if d.agentWas && duration >= d.cfg.InterruptThreshold {
		d.segment.Interrupted = true
	}

	d.state = StateDebouncing
	d.commitGen++
	gen := d.commitGen
	d.commit = time.AfterFunc(d.cfg.SilenceWindow, func() { d.fireCommit(gen) })
}

// fireCommit delivers the segment if the debounce was not cancelled.
func (d *Detector) fireCommit(gen int) {
	d.mu.Lock()
	if d.state != StateDebouncing || gen != d.commitGen {
		d.mu.Unlock()
		return
	}
	segment := d.segment
	d.segment = Segment{}
	d.agentWas = false
	d.state = StateIdle
	d.mu.Unlock()

	if d.onCommit != nil {
		d.onCommit(segment)
	}
}

func (d *Detector) cancelCommitLocked() {
	d.commitGen++
	if d.commit != nil {
		d.commit.Stop()
		d.commit = nil
	}
}

// Stop cancels any pending commit and resets the detector. Pending segments
// are dropped.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelCommitLocked()
	d.segment = Segment{}
	d.prefix = nil
	d.agentWas = false
	d.state = StateIdle
}
