// Package config loads the agent configuration from environment variables.
// A .env file in the working directory is loaded first when present; every
// value has a default except the LiveKit credentials.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/jihoonkang/voice-agent-go/pkg/ai/llm"
	"github.com/jihoonkang/voice-agent-go/pkg/turn"
)

// Config holds every runtime setting.
type Config struct {
	// LiveKit connection.
	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	RoomName         string
	AgentIdentity    string

	// STT.
	WhisperServerURL   string
	WhisperModelSize   string
	WhisperDevice      string
	WhisperComputeType string
	STTWorkers         int

	// TTS.
	TTSVoice string

	// Turn detection.
	TurnSilence        time.Duration
	TurnMinSpeech      time.Duration
	TurnPrefixPadding  time.Duration
	InterruptThreshold time.Duration

	// LLM backend selection.
	LLM llm.Config

	// VAD.
	VADModelPath string
	VADThreshold float32

	// Debugging.
	DebugDumpDir string
}

// Load reads the environment (after an optional .env file) and validates the
// required LiveKit settings.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		LiveKitURL:       os.Getenv("LIVEKIT_URL"),
		LiveKitAPIKey:    os.Getenv("LIVEKIT_API_KEY"),
		LiveKitAPISecret: os.Getenv("LIVEKIT_API_SECRET"),
		RoomName:         getEnv("LIVEKIT_ROOM", "voice-agent"),
		AgentIdentity:    getEnv("AGENT_IDENTITY", "voice-agent"),

		WhisperServerURL:   getEnv("WHISPER_SERVER_URL", "http://localhost:8178"),
		WhisperModelSize:   getEnv("WHISPER_MODEL_SIZE", "base"),
		WhisperDevice:      getEnv("WHISPER_DEVICE", "cpu"),
		WhisperComputeType: getEnv("WHISPER_COMPUTE_TYPE", "int8"),
		STTWorkers:         getEnvInt("STT_WORKERS", 1),

		TTSVoice: getEnv("TTS_VOICE", "ko-KR-SunHiNeural"),

		TurnSilence:        getEnvMillis("TURN_DETECTION_SILENCE_MS", 800),
		TurnMinSpeech:      getEnvMillis("TURN_DETECTION_MIN_SPEECH_MS", 300),
		TurnPrefixPadding:  getEnvMillis("TURN_DETECTION_PREFIX_PADDING_MS", 300),
		InterruptThreshold: getEnvMillis("INTERRUPT_THRESHOLD_MS", 500),

		LLM: llm.Config{
			Provider:        getEnv("LLM_PROVIDER", "ollama"),
			OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:     getEnv("OLLAMA_MODEL", "llama3.2:3b"),
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
			GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},

		VADModelPath: os.Getenv("VAD_MODEL_PATH"),
		VADThreshold: float32(getEnvFloat("VAD_THRESHOLD", 0.5)),

		DebugDumpDir: os.Getenv("VOICE_DEBUG_DUMP_DIR"),
	}

	if cfg.LiveKitURL == "" {
		return nil, fmt.Errorf("LIVEKIT_URL is required")
	}
	if cfg.LiveKitAPIKey == "" || cfg.LiveKitAPISecret == "" {
		return nil, fmt.Errorf("LIVEKIT_API_KEY and LIVEKIT_API_SECRET are required")
	}
	return cfg, nil
}

// TurnConfig maps the detection thresholds onto the detector configuration.
func (c *Config) TurnConfig() turn.Config {
	return turn.Config{
		SilenceWindow:      c.TurnSilence,
		MinSpeech:          c.TurnMinSpeech,
		PrefixPadding:      c.TurnPrefixPadding,
		InterruptThreshold: c.InterruptThreshold,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}
