package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI talks to an OpenAI-compatible chat completions endpoint. A custom
// base URL points it at any server that speaks the same protocol.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-compatible provider. An empty baseURL uses the
// official endpoint.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = newHTTPClient()
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Chat implements LLM.
func (o *OpenAI) Chat(ctx context.Context, messages []Message, opts *Options) (Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}
	if opts != nil {
		if opts.Temperature != nil {
			req.Temperature = *opts.Temperature
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
	}

	completion, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Response{}, &RequestError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		return Response{}, fmt.Errorf("chat completion request failed: %w", err)
	}

	resp := Response{Model: completion.Model}
	if resp.Model == "" {
		resp.Model = o.model
	}
	if len(completion.Choices) > 0 {
		resp.Content = completion.Choices[0].Message.Content
	}
	if completion.Usage.TotalTokens > 0 {
		resp.Usage = &Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// ModelName implements LLM.
func (o *OpenAI) ModelName() string { return o.model }

// ProviderType implements LLM.
func (o *OpenAI) ProviderType() string { return "openai" }
