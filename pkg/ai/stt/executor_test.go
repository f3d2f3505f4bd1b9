package stt

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type gatedTranscriber struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (g *gatedTranscriber) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	g.calls.Add(1)
	return Result{Segments: []Segment{{Text: "ok"}}}, nil
}

func (g *gatedTranscriber) ModelName() string { return "gated" }

func TestExecutorBoundsConcurrency(t *testing.T) {
	inner := &gatedTranscriber{}
	exec := NewExecutor(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := exec.Transcribe(context.Background(), nil, Options{}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := inner.peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
	if got := inner.calls.Load(); got != 8 {
		t.Errorf("calls = %d, want 8", got)
	}
}

func TestExecutorRespectsContext(t *testing.T) {
	inner := &gatedTranscriber{}
	exec := NewExecutor(inner, 1)

	release := make(chan struct{})
	go func() {
		exec.Transcribe(context.Background(), nil, Options{})
		close(release)
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exec.Transcribe(ctx, nil, Options{}); err == nil {
		t.Fatal("expected error when context is done before a slot opens")
	}
	<-release
}

func TestExecutorMinimumOneWorker(t *testing.T) {
	inner := &gatedTranscriber{}
	exec := NewExecutor(inner, 0)
	if _, err := exec.Transcribe(context.Background(), nil, Options{}); err != nil {
		t.Fatal(err)
	}
	if exec.ModelName() != "gated" {
		t.Errorf("model = %q", exec.ModelName())
	}
}
