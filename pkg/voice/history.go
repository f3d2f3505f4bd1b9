package voice

import (
	"sync"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/llm"
)

// HistoryCap bounds the dialogue history to ten exchanges.
const HistoryCap = 20

// History is the bounded per-participant dialogue record. Appending past the
// cap drops the oldest messages.
type History struct {
	mu       sync.Mutex
	messages []llm.Message
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// AppendExchange records one user utterance and the assistant reply, then
// trims to the cap keeping the tail.
func (h *History) AppendExchange(user, assistant string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages,
		llm.Message{Role: llm.RoleUser, Content: user},
		llm.Message{Role: llm.RoleAssistant, Content: assistant},
	)
	if len(h.messages) > HistoryCap {
		h.messages = append(h.messages[:0], h.messages[len(h.messages)-HistoryCap:]...)
	}
}

// Messages returns a copy of the history in order.
func (h *History) Messages() []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of stored messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}
