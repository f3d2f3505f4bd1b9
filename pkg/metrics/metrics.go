// Package metrics emits one structured line per pipeline stage. Each record
// is a single line: a fixed "METRIC: " prefix followed by a JSON object, so
// downstream log scrapers can grep the prefix and parse the rest.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"
)

// Prefix marks a metric line in the process log.
const Prefix = "METRIC: "

// Stage event names.
const (
	EventSTT              = "stt_transcription"
	EventLLM              = "llm_response"
	EventTTS              = "tts_synthesis"
	EventPipelineComplete = "pipeline_complete"

	EventSTTError = "stt_error"
	EventLLMError = "llm_error"
	EventTTSError = "tts_error"
)

// Fields carries stage-specific context. Values must be strings, numbers,
// bools or time.Durations; durations are serialized as milliseconds.
type Fields map[string]any

// Emitter writes metric lines. Safe for concurrent use.
type Emitter struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewEmitter creates an emitter writing to out; nil means os.Stdout.
func NewEmitter(out io.Writer) *Emitter {
	if out == nil {
		out = os.Stdout
	}
	return &Emitter{out: out, now: time.Now}
}

// WithClock overrides the timestamp source.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	e.now = now
	return e
}

// Emit writes one metric line with the event name, elapsed duration and the
// given fields. Reserved keys (event, duration_ms, timestamp) in fields are
// ignored.
func (e *Emitter) Emit(event string, elapsed time.Duration, fields Fields) {
	record := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		record[k] = normalize(v)
	}
	record["event"] = event
	record["duration_ms"] = roundMillis(elapsed)
	record["timestamp"] = float64(e.now().UnixNano()) / 1e9

	line, err := json.Marshal(record)
	if err != nil {
		// A field slipped through that json cannot represent; drop the
		// metric rather than corrupting the log stream.
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.out, "%s%s\n", Prefix, line)
}

// roundMillis converts to milliseconds rounded to two decimals.
func roundMillis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

// normalize converts wrapper types to plain JSON numbers.
func normalize(v any) any {
	switch t := v.(type) {
	case time.Duration:
		return roundMillis(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
