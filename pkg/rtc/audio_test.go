package rtc

import (
	"testing"
	"time"
)

func TestNewAudioFrameValidates(t *testing.T) {
	if _, err := NewAudioFrame(make([]byte, 4), 0, 1, time.Time{}); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewAudioFrame(make([]byte, 4), 48000, 0, time.Time{}); err == nil {
		t.Error("expected error for zero channels")
	}
	if _, err := NewAudioFrame(make([]byte, 3), 48000, 1, time.Time{}); err == nil {
		t.Error("expected error for odd data length")
	}
	if _, err := NewAudioFrame(make([]byte, 6), 48000, 2, time.Time{}); err == nil {
		t.Error("expected error for partial stereo sample")
	}
	if _, err := NewAudioFrame(make([]byte, 8), 48000, 2, time.Time{}); err != nil {
		t.Errorf("valid frame rejected: %v", err)
	}
}

func TestFrameFromInt16RoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	f := FrameFromInt16(samples, 48000, 1, time.Time{})

	got := f.Samples()
	if len(got) != len(samples) {
		t.Fatalf("samples = %d", len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestDuration(t *testing.T) {
	f := FrameFromInt16(make([]int16, 480), 48000, 1, time.Time{})
	if f.Duration() != 10*time.Millisecond {
		t.Errorf("duration = %v, want 10ms", f.Duration())
	}

	stereo := FrameFromInt16(make([]int16, 960), 48000, 2, time.Time{})
	if stereo.SamplesPerChannel() != 480 {
		t.Errorf("per channel = %d", stereo.SamplesPerChannel())
	}
	if stereo.Duration() != 10*time.Millisecond {
		t.Errorf("stereo duration = %v", stereo.Duration())
	}
}

func TestCloneIsDeep(t *testing.T) {
	f := FrameFromInt16([]int16{1, 2, 3}, 16000, 1, time.Now())
	c := f.Clone()
	c.Data[0] = 0xFF
	if f.Data[0] == 0xFF {
		t.Error("clone shares the data buffer")
	}
	if c.SampleRate != f.SampleRate || !c.Timestamp.Equal(f.Timestamp) {
		t.Error("clone lost metadata")
	}
}
