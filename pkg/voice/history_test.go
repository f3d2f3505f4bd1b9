package voice

import (
	"fmt"
	"testing"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/llm"
)

func TestHistoryKeepsLastTwenty(t *testing.T) {
	h := NewHistory()

	const exchanges = 50
	for i := 0; i < exchanges; i++ {
		h.AppendExchange(fmt.Sprintf("user-%d", i), fmt.Sprintf("assistant-%d", i))
	}

	msgs := h.Messages()
	if len(msgs) != HistoryCap {
		t.Fatalf("len = %d, want %d", len(msgs), HistoryCap)
	}

	// The tail must be the last 10 exchanges in order.
	firstKept := exchanges - HistoryCap/2
	for i := 0; i < HistoryCap/2; i++ {
		user := msgs[i*2]
		assistant := msgs[i*2+1]
		if user.Role != llm.RoleUser || user.Content != fmt.Sprintf("user-%d", firstKept+i) {
			t.Fatalf("message %d = %+v, want user-%d", i*2, user, firstKept+i)
		}
		if assistant.Role != llm.RoleAssistant || assistant.Content != fmt.Sprintf("assistant-%d", firstKept+i) {
			t.Fatalf("message %d = %+v, want assistant-%d", i*2+1, assistant, firstKept+i)
		}
	}
}

func TestHistoryBelowCap(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 3; i++ {
		h.AppendExchange("u", "a")
	}
	if got := h.Len(); got != 6 {
		t.Fatalf("len = %d, want 6", got)
	}
}

func TestHistoryMessagesIsACopy(t *testing.T) {
	h := NewHistory()
	h.AppendExchange("hello", "world")

	msgs := h.Messages()
	msgs[0].Content = "mutated"

	if h.Messages()[0].Content != "hello" {
		t.Error("Messages must return a copy")
	}
}
