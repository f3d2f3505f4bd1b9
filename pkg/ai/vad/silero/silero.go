// Package silero implements voice activity detection with the Silero ONNX
// model, falling back to energy-based detection when the model or the ONNX
// runtime is unavailable.
package silero

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/vad"
)

const (
	// windowSamples is the analysis window the Silero model expects at 16 kHz.
	windowSamples = 512

	sampleRate = 16000

	// DefaultThreshold is the speech probability above which a window counts
	// as voiced.
	DefaultThreshold = 0.5

	// Hysteresis in windows (one window is 32 ms).
	startWindows = 3
	endWindows   = 10
)

// Config holds detector configuration.
type Config struct {
	ModelPath string  // path to silero_vad.onnx; empty disables ONNX
	Threshold float32 // 0 means DefaultThreshold
}

// Silero is a VAD factory. One factory serves many streams; each stream keeps
// its own recurrent model state.
type Silero struct {
	cfg     Config
	useONNX bool
	logger  *slog.Logger
}

// New creates a Silero VAD. When the model cannot be loaded the detector
// degrades to energy-based detection rather than failing.
func New(cfg Config, logger *slog.Logger) *Silero {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Silero{cfg: cfg, logger: logger}

	if cfg.ModelPath == "" {
		logger.Info("no vad model configured, using energy-based detection")
		return s
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		logger.Warn("vad model not found, using energy-based detection",
			slog.String("model_path", cfg.ModelPath))
		return s
	}
	if err := ensureOrtEnv(); err != nil {
		logger.Warn("onnx runtime unavailable, using energy-based detection",
			slog.String("error", err.Error()))
		return s
	}
	s.useONNX = true
	logger.Info("silero vad model loaded", slog.String("model_path", cfg.ModelPath))
	return s
}

// Stream implements vad.VAD.
func (s *Silero) Stream() (vad.Stream, error) {
	st := &stream{
		cfg:    s.cfg,
		events: make(chan vad.Event, 16),
	}
	if s.useONNX {
		session, err := newModelSession(s.cfg.ModelPath)
		if err != nil {
			s.logger.Warn("onnx session failed, stream uses energy-based detection",
				slog.String("error", err.Error()))
		} else {
			st.session = session
		}
	}
	return st, nil
}

// stream accumulates pushed samples into fixed windows and runs one model
// (or energy) evaluation per window.
type stream struct {
	cfg     Config
	session *modelSession

	mu      sync.Mutex
	pending []float32
	closed  bool

	speaking           bool
	consecutiveSpeech  int
	consecutiveSilence int

	events chan vad.Event
}

// Push implements vad.Stream.
func (st *stream) Push(samples []float32) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return fmt.Errorf("vad stream closed: %w", vad.ErrFatal)
	}

	st.pending = append(st.pending, samples...)
	for len(st.pending) >= windowSamples {
		window := st.pending[:windowSamples]
		st.pending = st.pending[windowSamples:]

		voiced, err := st.evaluate(window)
		if err != nil {
			return err
		}
		st.advance(voiced)
	}
	return nil
}

func (st *stream) evaluate(window []float32) (bool, error) {
	if st.session != nil {
		prob, err := st.session.speechProbability(window)
		if err != nil {
			return false, fmt.Errorf("silero inference: %w", err)
		}
		return prob > st.cfg.Threshold, nil
	}
	return rmsEnergy(window) > energyThreshold, nil
}

// advance applies start/end hysteresis and emits boundary events.
func (st *stream) advance(voiced bool) {
	if voiced {
		st.consecutiveSpeech++
		st.consecutiveSilence = 0
		if !st.speaking && st.consecutiveSpeech >= startWindows {
			st.speaking = true
			st.emit(vad.EventStartOfSpeech)
		}
		return
	}

	st.consecutiveSilence++
	st.consecutiveSpeech = 0
	if st.speaking && st.consecutiveSilence >= endWindows {
		st.speaking = false
		st.emit(vad.EventEndOfSpeech)
	}
}

func (st *stream) emit(t vad.EventType) {
	select {
	case st.events <- vad.Event{Type: t, Timestamp: time.Now()}:
	default:
		// Consumer stalled; dropping a boundary beats blocking the audio path.
	}
}

// Events implements vad.Stream.
func (st *stream) Events() <-chan vad.Event { return st.events }

// Close implements vad.Stream.
func (st *stream) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil
	}
	st.closed = true
	if st.speaking {
		st.speaking = false
		st.emit(vad.EventEndOfSpeech)
	}
	close(st.events)
	if st.session != nil {
		st.session.destroy()
		st.session = nil
	}
	return nil
}

// energyThreshold is the normalized RMS floor for the fallback detector.
const energyThreshold = 0.015

func rmsEnergy(window []float32) float32 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(window))))
}

// modelSession wraps one ONNX session together with the recurrent state the
// Silero model threads between windows.
type modelSession struct {
	session *ort.DynamicAdvancedSession
	state   []float32
	sr      []int64
}

func newModelSession(modelPath string) (*modelSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("inter-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &modelSession{
		session: session,
		state:   make([]float32, 2*1*128),
		sr:      []int64{sampleRate},
	}, nil
}

// speechProbability runs one window through the model and carries the
// recurrent state forward.
func (m *modelSession) speechProbability(window []float32) (float32, error) {
	input, err := ort.NewTensor(ort.NewShape(1, windowSamples), window)
	if err != nil {
		return 0, err
	}
	defer input.Destroy()

	state, err := ort.NewTensor(ort.NewShape(2, 1, 128), m.state)
	if err != nil {
		return 0, err
	}
	defer state.Destroy()

	sr, err := ort.NewTensor(ort.NewShape(1), m.sr)
	if err != nil {
		return 0, err
	}
	defer sr.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := m.session.Run([]ort.Value{input, state, sr}, outputs); err != nil {
		return 0, err
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	probOut, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	probs := probOut.GetData()
	if len(probs) == 0 {
		return 0, fmt.Errorf("empty probability tensor")
	}

	if stateOut, ok := outputs[1].(*ort.Tensor[float32]); ok {
		copy(m.state, stateOut.GetData())
	}
	return probs[0], nil
}

func (m *modelSession) destroy() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}
