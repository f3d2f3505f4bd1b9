package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClaudeChat(t *testing.T) {
	var gotHeaders http.Header
	var gotBody claudeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"model": "claude-sonnet-4-20250514",
			"content": []map[string]string{
				{"type": "text", "text": "안녕"},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "하세요"},
			},
			"usage": map[string]int{"input_tokens": 5, "output_tokens": 2},
		})
	}))
	defer server.Close()

	c := NewClaude("sk-test", "claude-sonnet-4-20250514")
	c.baseURL = server.URL

	messages := []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleSystem, Content: "speak korean"},
		{Role: RoleUser, Content: "인사해"},
	}
	resp, err := c.Chat(context.Background(), messages, nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := gotHeaders.Get("x-api-key"); got != "sk-test" {
		t.Errorf("x-api-key = %q", got)
	}
	if got := gotHeaders.Get("anthropic-version"); got != "2023-06-01" {
		t.Errorf("anthropic-version = %q", got)
	}

	// System messages hoisted and newline-joined; only non-system remain.
	if gotBody.System != "be brief\nspeak korean" {
		t.Errorf("system = %q", gotBody.System)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
	if gotBody.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d, want default 4096", gotBody.MaxTokens)
	}

	// Text blocks concatenated, non-text blocks skipped.
	if resp.Content != "안녕하세요" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestClaudeNon2xxIsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClaude("sk-test", "claude-sonnet-4-20250514")
	c.baseURL = server.URL

	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v, want *RequestError", err)
	}
	if reqErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", reqErr.Status)
	}
}
