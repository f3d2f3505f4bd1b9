package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jihoonkang/voice-agent-go/pkg/ai"
)

func TestOllamaChat(t *testing.T) {
	var gotPath string
	var gotBody ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"content": "응답입니다"},
			"prompt_eval_count": 12,
			"eval_count":        8,
		})
	}))
	defer server.Close()

	o := NewOllama(server.URL, "llama3.2:3b")
	resp, err := o.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "system"},
		{Role: RoleUser, Content: "질문"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/api/chat" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.Model != "llama3.2:3b" || gotBody.Stream {
		t.Errorf("request = %+v", gotBody)
	}
	if gotBody.Options != nil {
		t.Error("options must be omitted without explicit parameters")
	}
	if resp.Content != "응답입니다" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 8 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOllamaOptionsForwarded(t *testing.T) {
	var gotBody ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"message":{"content":"ok"}}`))
	}))
	defer server.Close()

	temp := float32(0.2)
	o := NewOllama(server.URL, "llama3.2:3b")
	_, err := o.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}},
		&Options{Temperature: &temp, MaxTokens: 128})
	if err != nil {
		t.Fatal(err)
	}
	if gotBody.Options == nil || gotBody.Options.NumPredict != 128 || *gotBody.Options.Temperature != 0.2 {
		t.Errorf("options = %+v", gotBody.Options)
	}
}

func TestOllamaNoUsageWithoutEvalCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"ok"}}`))
	}))
	defer server.Close()

	o := NewOllama(server.URL, "llama3.2:3b")
	resp, err := o.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Usage != nil {
		t.Errorf("usage = %+v, want nil", resp.Usage)
	}
}

func TestRequestErrorIsRecoverable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	o := NewOllama(server.URL, "llama3.2:3b")
	_, err := o.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if !errors.Is(err, ai.ErrRecoverable) {
		t.Fatalf("error = %v, want recoverable", err)
	}
}
