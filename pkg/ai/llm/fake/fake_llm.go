// Package fake provides a scripted LLM implementation for testing.
package fake

import (
	"context"
	"sync"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/llm"
)

// FakeLLM cycles through predefined responses and records every request.
type FakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     [][]llm.Message
}

// NewFakeLLM creates a fake provider with the given responses. With no
// responses it answers with a single canned string.
func NewFakeLLM(responses ...string) *FakeLLM {
	if len(responses) == 0 {
		responses = []string{"This is a fake response from the fake LLM provider."}
	}
	return &FakeLLM{responses: responses}
}

// FailWith makes every subsequent Chat call return err.
func (f *FakeLLM) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns the message lists received so far.
func (f *FakeLLM) Calls() [][]llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]llm.Message, len(f.calls))
	copy(out, f.calls)
	return out
}

// Chat implements llm.LLM.
func (f *FakeLLM) Chat(ctx context.Context, messages []llm.Message, opts *llm.Options) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make([]llm.Message, len(messages))
	copy(copied, messages)
	f.calls = append(f.calls, copied)

	if f.err != nil {
		return llm.Response{}, f.err
	}

	response := f.responses[(len(f.calls)-1)%len(f.responses)]
	return llm.Response{
		Content: response,
		Model:   f.ModelName(),
		Usage:   &llm.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

// ModelName implements llm.LLM.
func (f *FakeLLM) ModelName() string { return "fake-model" }

// ProviderType implements llm.LLM.
func (f *FakeLLM) ProviderType() string { return "fake" }
