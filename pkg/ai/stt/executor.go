package stt

import (
	"context"
	"fmt"
)

// Executor bounds concurrent inference on a shared Transcriber. Whisper-class
// models are CPU-bound and usually not reentrant, so the executor admits at
// most workers calls at a time; additional callers wait or bail out when
// their context is done.
type Executor struct {
	inner   Transcriber
	tickets chan struct{}
}

// NewExecutor wraps t with an admission limit. workers < 1 is treated as 1.
func NewExecutor(t Transcriber, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	tickets := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		tickets <- struct{}{}
	}
	return &Executor{inner: t, tickets: tickets}
}

// Transcribe implements Transcriber.
func (e *Executor) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("waiting for transcription slot: %w", ctx.Err())
	case ticket := <-e.tickets:
		defer func() { e.tickets <- ticket }()
	}
	return e.inner.Transcribe(ctx, samples, opts)
}

// ModelName implements Transcriber.
func (e *Executor) ModelName() string { return e.inner.ModelName() }
