package llm

import (
	"fmt"

	"github.com/jihoonkang/voice-agent-go/pkg/ai"
)

// Config selects and parameterizes a backend.
type Config struct {
	Provider string // ollama | openai | claude | gemini

	OllamaBaseURL string
	OllamaModel   string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey string
	ClaudeModel     string

	GeminiAPIKey string
	GeminiModel  string
}

// New builds the provider named by cfg.Provider. An unknown provider is a
// fatal configuration error: the process should not start.
func New(cfg Config) (LLM, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, ai.NewFatalError(nil, "OPENAI_API_KEY is required for the openai provider")
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case "claude":
		if cfg.AnthropicAPIKey == "" {
			return nil, ai.NewFatalError(nil, "ANTHROPIC_API_KEY is required for the claude provider")
		}
		return NewClaude(cfg.AnthropicAPIKey, cfg.ClaudeModel), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, ai.NewFatalError(nil, "GEMINI_API_KEY is required for the gemini provider")
		}
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	default:
		return nil, ai.NewFatalError(nil, fmt.Sprintf("unknown LLM provider type: %q", cfg.Provider))
	}
}
