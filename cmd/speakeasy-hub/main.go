package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgnsrekt/speakeasy/internal/api"
	"github.com/dgnsrekt/speakeasy/internal/config"
	"github.com/dgnsrekt/speakeasy/internal/hub"
	"github.com/dgnsrekt/speakeasy/internal/logging"
	"github.com/dgnsrekt/speakeasy/internal/tts"
)

func main() {
	// A missing .env is fine; the environment may already be set
	envErr := godotenv.Load()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		// Use stderr before logger is initialized
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize structured logger
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting speakeasy-hub", "version", "0.1.0")

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("failed to read .env file", "error", envErr)
	}

	// Warn if bearer token auth is disabled
	if cfg.AuthDisabled() {
		logger.Warn("HTTP bearer authentication is disabled (BEARER_TOKEN is empty)")
	}

	// Log loaded configuration (without sensitive values)
	logger.Info("configuration loaded",
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"http_port", cfg.HTTPPort,
		"default_voice", cfg.DefaultVoice,
		"eleven_enabled", cfg.ElevenEnabled(),
		"max_text_length", cfg.MaxTextLength,
		"backlog_capacity", cfg.BacklogCapacity,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	// Initialize TTS engine registry; espeak-ng is the default engine
	ttsRegistry := tts.NewRegistry()

	espeakEngine, err := tts.NewEspeakEngine(tts.EspeakConfig{
		BinaryPath:   cfg.EspeakPath,
		DefaultVoice: cfg.DefaultVoice,
	}, logger)
	if err != nil {
		logger.Warn("failed to initialize espeak-ng", "error", err)
	} else if err := ttsRegistry.Register(espeakEngine); err != nil {
		logger.Warn("failed to register espeak-ng", "error", err)
	} else {
		logger.Info("espeak-ng engine registered", "path", cfg.EspeakPath)
	}

	if cfg.ElevenEnabled() {
		elevenEngine, err := tts.NewElevenLabsEngine(tts.ElevenLabsConfig{
			APIKey:            cfg.ElevenAPIKey,
			ModelID:           cfg.ElevenModel,
			RequestsPerMinute: cfg.ElevenRequestsPerMinute,
		}, logger)
		if err != nil {
			logger.Warn("failed to initialize ElevenLabs", "error", err)
		} else if err := ttsRegistry.Register(elevenEngine); err != nil {
			logger.Warn("failed to register ElevenLabs", "error", err)
		} else {
			logger.Info("ElevenLabs engine registered", "model", cfg.ElevenModel)
		}
	}

	if len(ttsRegistry.List()) == 0 {
		logger.Warn("no TTS engine available, synthesis requests will fail")
	}

	speechHub := hub.New(hub.Config{
		BacklogCapacity: cfg.BacklogCapacity,
		HistorySize:     cfg.HistorySize,
	}, logger)

	// Create and start HTTP server
	server := api.New(cfg, logger, speechHub, ttsRegistry)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
}
