package voice

import "sync/atomic"

// SpeakingGate tracks whether agent playback is active. The turn detector
// samples it on START_OF_SPEECH to recognize barge-in, so it must be true
// strictly from just before the first outbound frame until the last frame
// has been written.
type SpeakingGate struct {
	speaking atomic.Bool
}

// NewSpeakingGate creates a gate in the not-speaking state.
func NewSpeakingGate() *SpeakingGate {
	return &SpeakingGate{}
}

// Set records whether playback is active.
func (g *SpeakingGate) Set(on bool) {
	g.speaking.Store(on)
}

// Speaking reports whether playback is active.
func (g *SpeakingGate) Speaking() bool {
	return g.speaking.Load()
}
