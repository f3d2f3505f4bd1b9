package config

import (
	"testing"
	"time"
)

func setLiveKit(t *testing.T) {
	t.Helper()
	t.Setenv("LIVEKIT_URL", "ws://localhost:7880")
	t.Setenv("LIVEKIT_API_KEY", "devkey")
	t.Setenv("LIVEKIT_API_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setLiveKit(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.RoomName != "voice-agent" || cfg.AgentIdentity != "voice-agent" {
		t.Errorf("room = %q identity = %q", cfg.RoomName, cfg.AgentIdentity)
	}
	if cfg.WhisperServerURL != "http://localhost:8178" {
		t.Errorf("whisper url = %q", cfg.WhisperServerURL)
	}
	if cfg.WhisperModelSize != "base" || cfg.WhisperDevice != "cpu" || cfg.WhisperComputeType != "int8" {
		t.Errorf("whisper = %q/%q/%q", cfg.WhisperModelSize, cfg.WhisperDevice, cfg.WhisperComputeType)
	}
	if cfg.TTSVoice != "ko-KR-SunHiNeural" {
		t.Errorf("voice = %q", cfg.TTSVoice)
	}
	if cfg.TurnSilence != 800*time.Millisecond ||
		cfg.TurnMinSpeech != 300*time.Millisecond ||
		cfg.TurnPrefixPadding != 300*time.Millisecond ||
		cfg.InterruptThreshold != 500*time.Millisecond {
		t.Errorf("turn thresholds = %+v", cfg.TurnConfig())
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.OllamaModel != "llama3.2:3b" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.STTWorkers != 1 {
		t.Errorf("stt workers = %d", cfg.STTWorkers)
	}
	if cfg.VADThreshold != 0.5 {
		t.Errorf("vad threshold = %v", cfg.VADThreshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	setLiveKit(t)
	t.Setenv("LIVEKIT_ROOM", "meeting-7")
	t.Setenv("TURN_DETECTION_SILENCE_MS", "1200")
	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("STT_WORKERS", "4")
	t.Setenv("VAD_THRESHOLD", "0.35")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RoomName != "meeting-7" {
		t.Errorf("room = %q", cfg.RoomName)
	}
	if cfg.TurnSilence != 1200*time.Millisecond {
		t.Errorf("silence = %v", cfg.TurnSilence)
	}
	if cfg.LLM.Provider != "claude" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.STTWorkers != 4 {
		t.Errorf("workers = %d", cfg.STTWorkers)
	}
	if cfg.VADThreshold != 0.35 {
		t.Errorf("threshold = %v", cfg.VADThreshold)
	}
}

func TestLoadRequiresLiveKit(t *testing.T) {
	t.Setenv("LIVEKIT_URL", "")
	t.Setenv("LIVEKIT_API_KEY", "devkey")
	t.Setenv("LIVEKIT_API_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without LIVEKIT_URL")
	}

	t.Setenv("LIVEKIT_URL", "ws://localhost:7880")
	t.Setenv("LIVEKIT_API_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without LIVEKIT_API_SECRET")
	}
}

func TestBadNumbersFallBack(t *testing.T) {
	setLiveKit(t)
	t.Setenv("STT_WORKERS", "many")
	t.Setenv("TURN_DETECTION_SILENCE_MS", "0.8s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.STTWorkers != 1 {
		t.Errorf("workers = %d, want fallback 1", cfg.STTWorkers)
	}
	if cfg.TurnSilence != 800*time.Millisecond {
		t.Errorf("silence = %v, want fallback 800ms", cfg.TurnSilence)
	}
}
