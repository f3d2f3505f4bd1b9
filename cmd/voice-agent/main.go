package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jihoonkang/voice-agent-go/pkg/agent"
	"github.com/jihoonkang/voice-agent-go/pkg/config"
	"github.com/jihoonkang/voice-agent-go/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:          "voice-agent",
	Short:        "Korean conversational voice agent for LiveKit rooms",
	Long:         `voice-agent joins a LiveKit room, listens to participants, and answers in Korean: VAD and turn detection feed Whisper STT, an LLM backend, and Edge TTS playback.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the configured room and serve conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Info("starting voice agent",
			slog.String("version", version.Version),
			slog.String("room", cfg.RoomName),
			slog.String("llm_provider", cfg.LLM.Provider),
			slog.String("tts_voice", cfg.TTSVoice))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := agent.New(cfg, logger)
		if err != nil {
			return err
		}
		a.Prewarm(ctx)

		if err := a.Run(ctx); err != nil {
			logger.Error("agent failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	},
}

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{}
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "console" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func main() {
	rootCmd.AddCommand(runCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
