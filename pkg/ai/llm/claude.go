package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"

// anthropicVersion is the API version header required on every request.
const anthropicVersion = "2023-06-01"

// Claude talks to the Anthropic Messages API.
type Claude struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// The Messages API has no system role: system messages are hoisted into the
// top-level system field, newline-joined when there is more than one.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Messages    []claudeMessage `json:"messages"`
	System      string          `json:"system,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewClaude creates an Anthropic provider.
func NewClaude(apiKey, model string) *Claude {
	return &Claude{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicBaseURL,
		client:  newHTTPClient(),
	}
}

// Chat implements LLM.
func (c *Claude) Chat(ctx context.Context, messages []Message, opts *Options) (Response, error) {
	req := c.buildRequest(messages, opts)

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	body, err := postJSON(ctx, c.client, c.baseURL+"/messages", headers, req)
	if err != nil {
		return Response{}, err
	}

	var parsed claudeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode claude response: %w", err)
	}

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	resp := Response{Content: content.String(), Model: parsed.Model}
	if resp.Model == "" {
		resp.Model = c.model
	}
	if parsed.Usage != nil {
		resp.Usage = &Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		}
	}
	return resp, nil
}

func (c *Claude) buildRequest(messages []Message, opts *Options) claudeRequest {
	req := claudeRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
	}
	var system []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, claudeMessage{Role: string(m.Role), Content: m.Content})
	}
	req.System = strings.Join(system, "\n")
	if opts != nil {
		req.Temperature = opts.Temperature
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
	}
	return req
}

// ModelName implements LLM.
func (c *Claude) ModelName() string { return c.model }

// ProviderType implements LLM.
func (c *Claude) ProviderType() string { return "claude" }
