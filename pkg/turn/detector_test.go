package turn

import (
	"sync"
	"testing"
	"time"

	"github.com/jihoonkang/voice-agent-go/pkg/rtc"
)

func frameAt(ts time.Time) *rtc.AudioFrame {
	samples := make([]int16, 480) // 10ms at 48kHz
	return rtc.FrameFromInt16(samples, 48000, 1, ts)
}

// commitRecorder collects committed segments.
type commitRecorder struct {
	mu       sync.Mutex
	segments []Segment
}

func (r *commitRecorder) record(seg Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = append(r.segments, seg)
}

func (r *commitRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.segments)
}

func (r *commitRecorder) last() Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.segments[len(r.segments)-1]
}

func testConfig(now func() time.Time) Config {
	return Config{
		SilenceWindow:      40 * time.Millisecond,
		MinSpeech:          300 * time.Millisecond,
		PrefixPadding:      300 * time.Millisecond,
		InterruptThreshold: 500 * time.Millisecond,
		Now:                now,
	}
}

func TestPrefixBufferIncludedOnSpeechStart(t *testing.T) {
	base := time.Now()
	clock := base
	rec := &commitRecorder{}
	d := NewDetector(testConfig(func() time.Time { return clock }), rec.record)

	// An old frame outside the 300ms padding window, then two fresh ones.
	old := frameAt(base.Add(-500 * time.Millisecond))
	fresh1 := frameAt(base.Add(-200 * time.Millisecond))
	fresh2 := frameAt(base.Add(-100 * time.Millisecond))
	d.PushFrame(old)
	d.PushFrame(fresh1)
	d.PushFrame(fresh2)

	d.OnSpeechStart(base)
	speech := frameAt(base)
	d.PushFrame(speech)
	d.OnSpeechEnd(base.Add(400 * time.Millisecond))

	waitFor(t, func() bool { return rec.count() == 1 })

	seg := rec.last()
	if len(seg.Frames) != 3 {
		t.Fatalf("expected 2 prefix frames + 1 speech frame, got %d", len(seg.Frames))
	}
	if seg.Frames[0] != fresh1 || seg.Frames[1] != fresh2 || seg.Frames[2] != speech {
		t.Error("segment frames are not the fresh prefix frames followed by speech")
	}
}

func TestPrefixEvictionByAge(t *testing.T) {
	base := time.Now()
	clock := base
	d := NewDetector(testConfig(func() time.Time { return clock }), nil)

	d.PushFrame(frameAt(base))

	// Advance past the padding window; the next push must evict the first.
	clock = base.Add(400 * time.Millisecond)
	kept := frameAt(clock)
	d.PushFrame(kept)

	rec := &commitRecorder{}
	d.onCommit = rec.record
	d.OnSpeechStart(clock)
	d.OnSpeechEnd(clock.Add(350 * time.Millisecond))

	waitFor(t, func() bool { return rec.count() == 1 })
	seg := rec.last()
	if len(seg.Frames) != 1 || seg.Frames[0] != kept {
		t.Fatalf("expected only the fresh prefix frame, got %d frames", len(seg.Frames))
	}
}

func TestMinSpeechRejectsShortSegment(t *testing.T) {
	base := time.Now()
	rec := &commitRecorder{}
	d := NewDetector(testConfig(func() time.Time { return base }), rec.record)

	d.OnSpeechStart(base)
	d.PushFrame(frameAt(base))
	d.OnSpeechEnd(base.Add(150 * time.Millisecond)) // below 300ms

	if got := d.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle after short segment", got)
	}
	time.Sleep(80 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("short segment must never commit")
	}
}

func TestDebounceCancelMergesSegments(t *testing.T) {
	base := time.Now()
	rec := &commitRecorder{}
	d := NewDetector(testConfig(time.Now), rec.record)

	d.OnSpeechStart(base)
	first := frameAt(base)
	d.PushFrame(first)
	d.OnSpeechEnd(base.Add(400 * time.Millisecond))

	if got := d.State(); got != StateDebouncing {
		t.Fatalf("state = %v, want debouncing", got)
	}

	// Resume before the 40ms test debounce fires.
	d.OnSpeechStart(base.Add(410 * time.Millisecond))
	second := frameAt(base.Add(420 * time.Millisecond))
	d.PushFrame(second)
	d.OnSpeechEnd(base.Add(900 * time.Millisecond))

	waitFor(t, func() bool { return rec.count() >= 1 })
	time.Sleep(60 * time.Millisecond)

	if rec.count() != 1 {
		t.Fatalf("merged speech must commit exactly once, got %d", rec.count())
	}
	seg := rec.last()
	if len(seg.Frames) != 2 || seg.Frames[0] != first || seg.Frames[1] != second {
		t.Error("merged segment must contain both bursts in order")
	}
	if seg.Start != base {
		t.Error("merged segment must keep the original start time")
	}
}

func TestInterruptFlaggedWhenAgentSpeaking(t *testing.T) {
	base := time.Now()
	cfg := testConfig(func() time.Time { return base })
	cfg.AgentSpeaking = func() bool { return true }
	rec := &commitRecorder{}
	d := NewDetector(cfg, rec.record)

	d.OnSpeechStart(base)
	d.PushFrame(frameAt(base))
	d.OnSpeechEnd(base.Add(600 * time.Millisecond)) // over the 500ms threshold

	waitFor(t, func() bool { return rec.count() == 1 })
	if !rec.last().Interrupted {
		t.Error("segment over the interrupt threshold during playback must be flagged")
	}
}

func TestShortCrossTalkNotFlagged(t *testing.T) {
	base := time.Now()
	cfg := testConfig(func() time.Time { return base })
	cfg.AgentSpeaking = func() bool { return true }
	rec := &commitRecorder{}
	d := NewDetector(cfg, rec.record)

	d.OnSpeechStart(base)
	d.PushFrame(frameAt(base))
	d.OnSpeechEnd(base.Add(400 * time.Millisecond)) // long enough to commit, short of 500ms

	waitFor(t, func() bool { return rec.count() == 1 })
	if rec.last().Interrupted {
		t.Error("cross-talk below the interrupt threshold must not be flagged")
	}
}

func TestDuplicateBoundariesIgnored(t *testing.T) {
	base := time.Now()
	rec := &commitRecorder{}
	d := NewDetector(testConfig(func() time.Time { return base }), rec.record)

	d.OnSpeechStart(base)
	d.OnSpeechStart(base.Add(10 * time.Millisecond))
	d.PushFrame(frameAt(base))
	d.OnSpeechEnd(base.Add(400 * time.Millisecond))
	d.OnSpeechEnd(base.Add(500 * time.Millisecond))

	waitFor(t, func() bool { return rec.count() >= 1 })
	time.Sleep(60 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("duplicate VAD boundaries must not double-commit, got %d", rec.count())
	}
}

func TestStopDropsPendingCommit(t *testing.T) {
	base := time.Now()
	rec := &commitRecorder{}
	d := NewDetector(testConfig(func() time.Time { return base }), rec.record)

	d.OnSpeechStart(base)
	d.PushFrame(frameAt(base))
	d.OnSpeechEnd(base.Add(400 * time.Millisecond))
	d.Stop()

	time.Sleep(80 * time.Millisecond)
	if rec.count() != 0 {
		t.Error("Stop must cancel the pending commit")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
