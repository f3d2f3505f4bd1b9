package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini talks to the Google Generative Language API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens"`
	Temperature     *float32 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SystemInstruction *struct {
		Parts []geminiPart `json:"parts"`
	} `json:"systemInstruction,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGemini creates a Gemini provider.
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  newHTTPClient(),
	}
}

// Chat implements LLM.
func (g *Gemini) Chat(ctx context.Context, messages []Message, opts *Options) (Response, error) {
	req := g.buildRequest(messages, opts)

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))
	body, err := postJSON(ctx, g.client, endpoint, nil, req)
	if err != nil {
		return Response{}, err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode gemini response: %w", err)
	}

	resp := Response{Model: g.model}
	if len(parsed.Candidates) > 0 && len(parsed.Candidates[0].Content.Parts) > 0 {
		resp.Content = parsed.Candidates[0].Content.Parts[0].Text
	}
	if parsed.UsageMetadata != nil {
		resp.Usage = &Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		}
	}
	return resp, nil
}

// buildRequest normalizes roles for the Gemini wire format: system messages
// are hoisted into systemInstruction, assistant becomes "model" and anything
// else becomes "user".
func (g *Gemini) buildRequest(messages []Message, opts *Options) geminiRequest {
	req := geminiRequest{
		GenerationConfig: geminiGenerationConfig{MaxOutputTokens: defaultMaxTokens},
	}
	var system []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	if len(system) > 0 {
		req.SystemInstruction = &struct {
			Parts []geminiPart `json:"parts"`
		}{Parts: []geminiPart{{Text: strings.Join(system, "\n")}}}
	}
	if opts != nil {
		req.GenerationConfig.Temperature = opts.Temperature
		if opts.MaxTokens > 0 {
			req.GenerationConfig.MaxOutputTokens = opts.MaxTokens
		}
	}
	return req
}

// ModelName implements LLM.
func (g *Gemini) ModelName() string { return g.model }

// ProviderType implements LLM.
func (g *Gemini) ProviderType() string { return "gemini" }
