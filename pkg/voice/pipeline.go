// Package voice runs the per-participant conversation pipeline: it fuses the
// track's audio stream with VAD events, detects turns, and serializes
// STT → LLM → TTS → playback per committed turn.
package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/llm"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/stt"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/tts"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/vad"
	"github.com/jihoonkang/voice-agent-go/pkg/audio"
	"github.com/jihoonkang/voice-agent-go/pkg/audio/wav"
	"github.com/jihoonkang/voice-agent-go/pkg/metrics"
	"github.com/jihoonkang/voice-agent-go/pkg/rtc"
	"github.com/jihoonkang/voice-agent-go/pkg/turn"
)

// SystemPrompt is the conversational instruction prepended to every LLM call.
const SystemPrompt = `당신은 친절하고 도움이 되는 AI 어시스턴트입니다.
사용자와 음성으로 대화하고 있습니다.
짧고 자연스러운 대화체로 응답하세요.
한국어로 응답하세요.`

// ApologyMessage is spoken when the LLM fails, so the turn still produces
// voice output.
const ApologyMessage = "죄송합니다, 응답을 생성하는 데 문제가 발생했습니다."

// minSegmentSeconds rejects segments too short to transcribe.
const minSegmentSeconds = 0.3

// playbackFrameInterval paces outbound frames at real time.
const playbackFrameInterval = 20 * time.Millisecond

// DataPublisher delivers JSON events to the client over the room data
// channel with reliable delivery.
type DataPublisher interface {
	PublishData(ctx context.Context, payload []byte) error
}

// AudioSink consumes outbound playback frames (24 kHz mono).
type AudioSink interface {
	WriteFrame(frame *rtc.AudioFrame) error
}

// Config wires one pipeline.
type Config struct {
	Participant string

	STT     stt.Transcriber
	STTOpts stt.Options
	LLM     llm.LLM
	TTS     tts.Synthesizer
	Voice   string
	VAD     vad.VAD

	Turn turn.Config

	Data    DataPublisher
	Audio   AudioSink
	Metrics *metrics.Emitter
	Logger  *slog.Logger

	// DebugDumpDir, when set, receives one WAV file per transcribed segment.
	DebugDumpDir string
}

// Pipeline handles one remote audio track for its whole lifetime.
type Pipeline struct {
	cfg      Config
	gate     *SpeakingGate
	history  *History
	detector *turn.Detector
	logger   *slog.Logger

	// turnMu serializes committed turns: the next turn cannot begin STT
	// until the previous playback has drained.
	turnMu sync.Mutex

	runCtx context.Context
	turns  sync.WaitGroup

	mu         sync.Mutex
	frameCount int
	turnCount  int
}

// NewPipeline creates a pipeline; Run must be called to start it.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.STT == nil || cfg.LLM == nil || cfg.TTS == nil || cfg.VAD == nil {
		return nil, fmt.Errorf("pipeline requires stt, llm, tts and vad")
	}
	if cfg.Data == nil || cfg.Audio == nil {
		return nil, fmt.Errorf("pipeline requires data publisher and audio sink")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewEmitter(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Pipeline{
		cfg:     cfg,
		gate:    NewSpeakingGate(),
		history: NewHistory(),
		logger:  cfg.Logger.With(slog.String("participant", cfg.Participant)),
	}

	turnCfg := cfg.Turn
	turnCfg.AgentSpeaking = p.gate.Speaking
	p.detector = turn.NewDetector(turnCfg, p.onCommit)
	return p, nil
}

// History exposes the dialogue record, mainly for tests.
func (p *Pipeline) History() *History { return p.history }

// Speaking reports whether agent playback is active.
func (p *Pipeline) Speaking() bool { return p.gate.Speaking() }

// Run consumes the track's frames until the channel closes or ctx ends. Any
// in-flight turn is allowed to finish before Run returns.
func (p *Pipeline) Run(ctx context.Context, frames <-chan *rtc.AudioFrame) error {
	stream, err := p.cfg.VAD.Stream()
	if err != nil {
		return fmt.Errorf("open vad stream: %w", err)
	}

	p.runCtx = ctx
	p.logger.Info("pipeline started")

	var loops sync.WaitGroup
	loops.Add(1)
	go func() {
		defer loops.Done()
		p.vadLoop(stream)
	}()

	p.audioLoop(ctx, frames, stream)

	stream.Close()
	loops.Wait()
	p.detector.Stop()
	p.turns.Wait()
	p.logger.Info("pipeline stopped")
	return nil
}

// audioLoop fans each frame out to the VAD and to the turn detector, which
// routes it to the prefix ring or the active segment.
func (p *Pipeline) audioLoop(ctx context.Context, frames <-chan *rtc.AudioFrame, stream vad.Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			p.mu.Lock()
			p.frameCount++
			n := p.frameCount
			p.mu.Unlock()
			if n == 1 || n%100 == 0 {
				p.logger.Debug("audio frame",
					slog.Int("count", n),
					slog.Int("samples", len(frame.Data)/2),
					slog.Int("sample_rate", frame.SampleRate))
			}

			p.detector.PushFrame(frame)

			mono := audio.DownmixToMono(frame.Samples(), frame.NumChannels)
			resampled := audio.Resample(mono, frame.SampleRate, audio.STTSampleRate)
			if err := stream.Push(audio.Int16ToFloat32(resampled)); err != nil {
				p.logger.Error("vad push failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// vadLoop drives the turn detector from speech boundaries.
func (p *Pipeline) vadLoop(stream vad.Stream) {
	for event := range stream.Events() {
		switch event.Type {
		case vad.EventStartOfSpeech:
			if p.gate.Speaking() {
				p.logger.Info("user interrupt detected")
			}
			p.detector.OnSpeechStart(event.Timestamp)
		case vad.EventEndOfSpeech:
			p.detector.OnSpeechEnd(event.Timestamp)
		}
	}
}

// onCommit receives a finished segment from the detector. The turn runs on
// its own goroutine; turnMu queues it behind any turn still playing.
func (p *Pipeline) onCommit(seg turn.Segment) {
	ctx := p.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	p.turns.Add(1)
	go func() {
		defer p.turns.Done()
		p.processTurn(ctx, seg)
	}()
}

// processTurn runs one serialized STT → LLM → TTS → playback pass. Failures
// end only this turn.
func (p *Pipeline) processTurn(ctx context.Context, seg turn.Segment) {
	p.turnMu.Lock()
	defer p.turnMu.Unlock()

	pipelineStart := time.Now()

	userText, sttDuration, ok := p.transcribe(ctx, seg)
	if !ok || userText == "" {
		p.logger.Debug("empty transcription, skipping turn")
		return
	}
	p.logger.Info("user turn", slog.String("text", userText))
	p.sendData(ctx, map[string]any{"type": "transcription", "text": userText})

	reply, llmDuration := p.respond(ctx, userText)
	p.logger.Info("agent reply", slog.String("text", reply))
	p.sendData(ctx, map[string]any{"type": "response", "text": reply})

	p.history.AppendExchange(userText, reply)

	mp3, ttsDuration := p.synthesize(ctx, reply)

	p.cfg.Metrics.Emit(metrics.EventPipelineComplete, time.Since(pipelineStart), metrics.Fields{
		"participant":        p.cfg.Participant,
		"stt_ms":             sttDuration,
		"llm_ms":             llmDuration,
		"tts_ms":             ttsDuration,
		"speech_duration_ms": seg.Duration(),
	})

	if len(mp3) > 0 {
		p.play(ctx, mp3)
	}
}

// transcribe prepares the segment audio and runs STT. ok is false when the
// segment was rejected or the engine failed.
func (p *Pipeline) transcribe(ctx context.Context, seg turn.Segment) (text string, elapsed time.Duration, ok bool) {
	if len(seg.Frames) == 0 {
		return "", 0, false
	}

	first := seg.Frames[0]
	sourceRate := first.SampleRate
	mono := audio.DownmixToMono(audio.ConcatFrames(seg.Frames), first.NumChannels)
	if float64(len(mono)) < float64(sourceRate)*minSegmentSeconds {
		p.logger.Debug("audio too short", slog.Int("samples", len(mono)))
		return "", 0, false
	}

	resampled := audio.Resample(mono, sourceRate, audio.STTSampleRate)
	samples := audio.Int16ToFloat32(resampled)
	durationSec := float64(len(samples)) / float64(audio.STTSampleRate)

	level := audio.MeanAbs(samples)
	if level < audio.SilenceFloor {
		p.logger.Debug("audio level too low, likely silence")
		return "", 0, false
	}
	p.logger.Info("audio stats",
		slog.Float64("max", audio.Peak(samples)),
		slog.Float64("rms", audio.RMS(samples)),
		slog.Int("samples", len(samples)))

	p.dumpSegment(resampled)

	start := time.Now()
	result, err := p.cfg.STT.Transcribe(ctx, samples, p.cfg.STTOpts)
	elapsed = time.Since(start)
	if err != nil {
		p.cfg.Metrics.Emit(metrics.EventSTTError, elapsed, metrics.Fields{
			"model": p.cfg.STT.ModelName(),
			"error": err.Error(),
		})
		p.logger.Error("stt failed", slog.String("error", err.Error()))
		return "", elapsed, false
	}

	text = result.Text()
	p.cfg.Metrics.Emit(metrics.EventSTT, elapsed, metrics.Fields{
		"model":              p.cfg.STT.ModelName(),
		"audio_duration_sec": round2(durationSec),
		"text_length":        utf8.RuneCountInString(text),
		"language":           result.Info.Language,
		"source_sample_rate": sourceRate,
		"audio_level":        round6(level),
	})
	return text, elapsed, true
}

// respond calls the LLM with the system prompt, the bounded history and the
// new user message. On failure it substitutes the apology so the turn still
// produces voice output.
func (p *Pipeline) respond(ctx context.Context, userText string) (string, time.Duration) {
	messages := make([]llm.Message, 0, p.history.Len()+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt})
	messages = append(messages, p.history.Messages()...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userText})

	start := time.Now()
	resp, err := p.cfg.LLM.Chat(ctx, messages, nil)
	elapsed := time.Since(start)
	if err != nil {
		p.cfg.Metrics.Emit(metrics.EventLLMError, elapsed, metrics.Fields{
			"provider": p.cfg.LLM.ProviderType(),
			"model":    p.cfg.LLM.ModelName(),
			"error":    err.Error(),
		})
		p.logger.Error("llm failed", slog.String("error", err.Error()))
		return ApologyMessage, elapsed
	}

	p.cfg.Metrics.Emit(metrics.EventLLM, elapsed, metrics.Fields{
		"provider":       p.cfg.LLM.ProviderType(),
		"model":          p.cfg.LLM.ModelName(),
		"input_length":   utf8.RuneCountInString(userText),
		"output_length":  utf8.RuneCountInString(resp.Content),
		"history_length": p.history.Len(),
	})
	return resp.Content, elapsed
}

// synthesize collects the TTS stream into one MP3 buffer. An empty result
// means synthesis failed; the text events were already sent.
func (p *Pipeline) synthesize(ctx context.Context, text string) ([]byte, time.Duration) {
	start := time.Now()
	chunks, err := p.cfg.TTS.Synthesize(ctx, text, p.cfg.Voice)
	if err == nil {
		var mp3 []byte
		mp3, err = tts.Collect(ctx, chunks)
		if err == nil {
			elapsed := time.Since(start)
			p.cfg.Metrics.Emit(metrics.EventTTS, elapsed, metrics.Fields{
				"voice":       p.cfg.Voice,
				"text_length": utf8.RuneCountInString(text),
				"audio_bytes": len(mp3),
			})
			return mp3, elapsed
		}
	}

	elapsed := time.Since(start)
	p.cfg.Metrics.Emit(metrics.EventTTSError, elapsed, metrics.Fields{
		"voice": p.cfg.Voice,
		"error": err.Error(),
	})
	p.logger.Error("tts failed", slog.String("error", err.Error()))
	return nil, elapsed
}

// decodeAudio is swappable in tests, where real MP3 fixtures are overkill.
var decodeAudio = audio.DecodeMP3

// play decodes the MP3 reply and streams it to the outbound track in 20 ms
// frames. The speaking gate is held for the whole playback.
func (p *Pipeline) play(ctx context.Context, mp3 []byte) {
	pcm, err := decodeAudio(mp3)
	if err != nil {
		p.cfg.Metrics.Emit(metrics.EventTTSError, 0, metrics.Fields{
			"voice": p.cfg.Voice,
			"error": err.Error(),
		})
		p.logger.Error("playback decode failed", slog.String("error", err.Error()))
		return
	}

	p.gate.Set(true)
	defer p.gate.Set(false)

	ticker := time.NewTicker(playbackFrameInterval)
	defer ticker.Stop()

	for _, chunk := range audio.ChunkPCM(pcm, audio.PlaybackFrameSamples) {
		frame := rtc.FrameFromInt16(chunk, audio.PlaybackSampleRate, 1, time.Now())
		if err := p.cfg.Audio.WriteFrame(frame); err != nil {
			p.logger.Error("playback write failed", slog.String("error", err.Error()))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sendData publishes one JSON event on the data channel. Failures are logged
// and do not end the turn.
func (p *Pipeline) sendData(ctx context.Context, event map[string]any) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("encode data event failed", slog.String("error", err.Error()))
		return
	}
	if err := p.cfg.Data.PublishData(ctx, payload); err != nil {
		p.logger.Error("publish data failed", slog.String("error", err.Error()))
	}
}

// dumpSegment writes the prepared segment to a WAV file for offline
// inspection when a dump directory is configured.
func (p *Pipeline) dumpSegment(samples []int16) {
	if p.cfg.DebugDumpDir == "" {
		return
	}
	p.mu.Lock()
	p.turnCount++
	n := p.turnCount
	p.mu.Unlock()

	name := fmt.Sprintf("%s-turn-%03d.wav", p.cfg.Participant, n)
	path := filepath.Join(p.cfg.DebugDumpDir, name)
	if err := os.MkdirAll(p.cfg.DebugDumpDir, 0o755); err != nil {
		p.logger.Warn("segment dump failed", slog.String("error", err.Error()))
		return
	}
	if err := wav.WriteFile(path, samples, audio.STTSampleRate, 1); err != nil {
		p.logger.Warn("segment dump failed", slog.String("error", err.Error()))
		return
	}
	p.logger.Debug("segment dumped", slog.String("path", path))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
