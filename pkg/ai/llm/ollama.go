package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama talks to a local Ollama server's /api/chat endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama provider. baseURL is typically
// http://localhost:11434.
func NewOllama(baseURL, model string) *Ollama {
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  newHTTPClient(),
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Chat implements LLM.
func (o *Ollama) Chat(ctx context.Context, messages []Message, opts *Options) (Response, error) {
	req := ollamaRequest{
		Model:    o.model,
		Messages: make([]ollamaMessage, len(messages)),
		Stream:   false,
	}
	for i, m := range messages {
		req.Messages[i] = ollamaMessage{Role: string(m.Role), Content: m.Content}
	}
	if opts != nil && (opts.Temperature != nil || opts.MaxTokens > 0) {
		req.Options = &ollamaOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens}
	}

	body, err := postJSON(ctx, o.client, o.baseURL+"/api/chat", nil, req)
	if err != nil {
		return Response{}, err
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode ollama response: %w", err)
	}

	resp := Response{Content: parsed.Message.Content, Model: o.model}
	if parsed.EvalCount > 0 {
		resp.Usage = &Usage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
		}
	}
	return resp, nil
}

// ModelName implements LLM.
func (o *Ollama) ModelName() string { return o.model }

// ProviderType implements LLM.
func (o *Ollama) ProviderType() string { return "ollama" }

// postJSON sends a JSON body and returns the response body. A non-2xx status
// becomes a *RequestError carrying the status and body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
