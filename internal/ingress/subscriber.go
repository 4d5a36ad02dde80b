// Package ingress subscribes to the hub's server-sent event stream and
// submits every delivered message as a speech request.
package ingress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgnsrekt/speakeasy/internal/speech"
)

// Sink accepts requests parsed from the stream.
type Sink interface {
	Submit(req speech.Request) error
}

// VoiceSource reports the voice selected at the moment a message arrives.
type VoiceSource interface {
	CurrentVoice() string
}

// Config holds subscriber settings.
type Config struct {
	URL         string
	BearerToken string
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// Subscriber holds one long-lived push subscription and reconnects when it
// drops.
type Subscriber struct {
	cfg        Config
	sink       Sink
	voices     VoiceSource
	logger     *slog.Logger
	httpClient *http.Client
}

// NewSubscriber creates a subscriber.
func NewSubscriber(cfg Config, sink Sink, voices VoiceSource, logger *slog.Logger) *Subscriber {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Subscriber{
		cfg:    cfg,
		sink:   sink,
		voices: voices,
		logger: logger,
		// No timeout: the stream stays open indefinitely.
		httpClient: &http.Client{},
	}
}

// Run subscribes and reconnects on errors. It blocks until ctx is cancelled
// and then returns nil.
func (s *Subscriber) Run(ctx context.Context) error {
	backoff := s.cfg.MinBackoff

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		s.logger.Info("subscribing to event stream", "url", s.cfg.URL)

		connected, err := s.subscribe(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = s.cfg.MinBackoff
		}
		if err != nil {
			chErr := &speech.ChannelError{URL: s.cfg.URL, Err: err}
			s.logger.Warn("subscription dropped, reconnecting", "error", chErr, "backoff", backoff)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

// subscribe opens the stream and dispatches events until it ends. connected
// reports whether the hub accepted the subscription.
func (s *Subscriber) subscribe(ctx context.Context) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.BearerToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	s.logger.Info("connected to event stream")

	err = ReadEvents(resp.Body, func(ev Event) {
		if ev.Type != "" && ev.Type != "message" {
			s.logger.Debug("skipping event", "event", ev.Type)
			return
		}
		s.handleMessage(ev.Data)
	})
	if err != nil {
		return true, err
	}
	return true, io.EOF
}

// handleMessage turns one message into a request using the voice selected
// now and submits it.
func (s *Subscriber) handleMessage(text string) {
	voice := s.voices.CurrentVoice()

	req, err := speech.NewRequest(text, voice)
	if errors.Is(err, speech.ErrEmptyText) {
		s.logger.Debug("skipping empty message")
		return
	}
	if err != nil {
		s.logger.Error("failed to build request", "error", err)
		return
	}

	if err := s.sink.Submit(req); err != nil {
		s.logger.Error("failed to submit message", "request_id", req.ID, "error", err)
		return
	}

	s.logger.Info("message received", "request_id", req.ID, "voice", voice, "text_length", len(text))
}
