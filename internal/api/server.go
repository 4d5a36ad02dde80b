// Package api serves the hub's HTTP interface.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dgnsrekt/speakeasy/internal/config"
	"github.com/dgnsrekt/speakeasy/internal/hub"
	"github.com/dgnsrekt/speakeasy/internal/tts"
)

// PreviewText is the sentence synthesized by the preview endpoint.
const PreviewText = "Hi! I am going to sound like this."

// Synthesizer is the hub's text-to-speech backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*tts.AudioResult, error)
	Voices(ctx context.Context) ([]tts.Voice, error)
}

// Server handles HTTP API requests.
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	hub       *hub.Hub
	synth     Synthesizer
	keepalive time.Duration

	// streams is the base context of every request; cancelling it ends
	// open event streams so Shutdown does not wait on them.
	streams     context.Context
	stopStreams context.CancelFunc
}

// New creates a new API server.
func New(cfg *config.Config, logger *slog.Logger, h *hub.Hub, synth Synthesizer) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		hub:       h,
		synth:     synth,
		keepalive: 15 * time.Second,
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.HandleFunc("GET /events", s.withAuth(s.handleEvents))
	mux.HandleFunc("POST /api/speak", s.withAuth(s.handleSpeak))
	mux.HandleFunc("POST /api/pause", s.withAuth(s.handleSetPause))
	mux.HandleFunc("GET /api/pause", s.withAuth(s.handleGetPause))
	mux.HandleFunc("GET /api/queue", s.withAuth(s.handleQueue))
	mux.HandleFunc("POST /api/tts", s.withAuth(s.handleTTS))
	mux.HandleFunc("GET /api/preview", s.withAuth(s.handlePreview))
	mux.HandleFunc("GET /api/voices", s.withAuth(s.handleVoices))
	mux.HandleFunc("GET /api/history", s.withAuth(s.handleHistory))

	// No WriteTimeout: /events responses stay open.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.streams },
	}

	return s
}

// Handler returns the routed handler without a listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	s.stopStreams()
	return s.server.Shutdown(ctx)
}
