// Package agent ties the pieces together for one job: it prewarms the
// models, joins the room, publishes the agent voice track, and spawns one
// conversation pipeline per subscribed remote audio track.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/llm"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/stt"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/stt/whisper"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/tts"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/tts/edge"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/vad"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/vad/silero"
	"github.com/jihoonkang/voice-agent-go/pkg/config"
	"github.com/jihoonkang/voice-agent-go/pkg/job"
	"github.com/jihoonkang/voice-agent-go/pkg/metrics"
	"github.com/jihoonkang/voice-agent-go/pkg/rtc"
	"github.com/jihoonkang/voice-agent-go/pkg/voice"
)

// Agent is the process-level assembly: shared model clients plus the room
// connection for one job.
type Agent struct {
	cfg     *config.Config
	whisper *whisper.Client
	sttExec stt.Transcriber
	llm     llm.LLM
	tts     tts.Synthesizer
	vad     vad.VAD
	metrics *metrics.Emitter
	logger  *slog.Logger

	room      *job.Room
	source    *job.AudioSource
	pipelines sync.WaitGroup
}

// New constructs the shared providers. An unknown LLM backend or a missing
// credential fails here, before any room is joined.
func New(cfg *config.Config, logger *slog.Logger) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	whisperClient, err := whisper.New(whisper.Config{
		ServerURL:   cfg.WhisperServerURL,
		ModelSize:   cfg.WhisperModelSize,
		Device:      cfg.WhisperDevice,
		ComputeType: cfg.WhisperComputeType,
	})
	if err != nil {
		return nil, fmt.Errorf("create whisper client: %w", err)
	}

	provider, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	logger.Info("llm provider initialized",
		slog.String("provider", provider.ProviderType()),
		slog.String("model", provider.ModelName()))

	return &Agent{
		cfg:     cfg,
		whisper: whisperClient,
		sttExec: stt.NewExecutor(whisperClient, cfg.STTWorkers),
		llm:     provider,
		tts:     edge.New(),
		vad: silero.New(silero.Config{
			ModelPath: cfg.VADModelPath,
			Threshold: cfg.VADThreshold,
		}, logger),
		metrics: metrics.NewEmitter(nil),
		logger:  logger,
	}, nil
}

// Prewarm probes the STT server so the first turn does not pay model paging
// latency. The LLM provider and VAD model were already constructed in New.
func (a *Agent) Prewarm(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.whisper.Prewarm(probeCtx); err != nil {
		a.logger.Warn("stt prewarm failed, continuing",
			slog.String("error", err.Error()))
		return
	}
	a.logger.Info("voice agent prewarmed")
}

// Run joins the room, publishes the voice track, and serves pipelines until
// ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.source = job.NewAudioSource()

	room, err := job.Connect(job.Config{
		URL:       a.cfg.LiveKitURL,
		APIKey:    a.cfg.LiveKitAPIKey,
		APISecret: a.cfg.LiveKitAPISecret,
		RoomName:  a.cfg.RoomName,
		Identity:  a.cfg.AgentIdentity,
	}, func(participant string, frames <-chan *rtc.AudioFrame) {
		a.handleTrack(ctx, participant, frames)
	}, a.logger)
	if err != nil {
		return err
	}
	a.room = room
	defer room.Disconnect()

	if err := room.PublishVoiceTrack(a.source); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down, waiting for pipelines")
	a.pipelines.Wait()
	return nil
}

// handleTrack runs one conversation pipeline for the track's lifetime. A
// pipeline failure is logged and does not take down the agent.
func (a *Agent) handleTrack(ctx context.Context, participant string, frames <-chan *rtc.AudioFrame) {
	a.pipelines.Add(1)
	defer a.pipelines.Done()

	pipeline, err := voice.NewPipeline(voice.Config{
		Participant:  participant,
		STT:          a.sttExec,
		STTOpts:      stt.DefaultOptions(),
		LLM:          a.llm,
		TTS:          a.tts,
		Voice:        a.cfg.TTSVoice,
		VAD:          a.vad,
		Turn:         a.cfg.TurnConfig(),
		Data:         a.room,
		Audio:        a.source,
		Metrics:      a.metrics,
		Logger:       a.logger,
		DebugDumpDir: a.cfg.DebugDumpDir,
	})
	if err != nil {
		a.logger.Error("create pipeline failed",
			slog.String("participant", participant),
			slog.String("error", err.Error()))
		return
	}

	if err := pipeline.Run(ctx, frames); err != nil {
		a.logger.Error("pipeline failed",
			slog.String("participant", participant),
			slog.String("error", err.Error()))
	}
}
