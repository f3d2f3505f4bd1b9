// Package llm defines the chat interface over large-language-model backends
// and ships four concrete providers: Ollama, OpenAI-compatible, Anthropic
// Claude and Google Gemini.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jihoonkang/voice-agent-go/pkg/ai"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in a chat conversation. Immutable once appended
// to a history.
type Message struct {
	Role    Role
	Content string
}

// Usage reports token accounting when the backend provides it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the result of one chat completion.
type Response struct {
	Content string
	Model   string
	Usage   *Usage // nil when the backend reported none
}

// Options carries optional per-request parameters. A nil Options means
// backend defaults.
type Options struct {
	Temperature *float32
	MaxTokens   int // 0 means backend default (4096 where one is required)
}

// LLM is the uniform interface over chat backends.
type LLM interface {
	Chat(ctx context.Context, messages []Message, opts *Options) (Response, error)
	ModelName() string
	ProviderType() string
}

// RequestTimeout bounds every backend HTTP request.
const RequestTimeout = 60 * time.Second

// defaultMaxTokens is used where a backend requires an explicit cap.
const defaultMaxTokens = 4096

// RequestError is returned when a backend answers with a non-2xx status.
// It is recoverable at the turn level: the pipeline substitutes a fixed
// apology and keeps going.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("llm request failed: status %d: %s", e.Status, e.Body)
}

func (e *RequestError) Unwrap() error { return ai.ErrRecoverable }

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: RequestTimeout}
}
