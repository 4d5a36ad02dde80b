package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrMissingAPIKey is returned when no ElevenLabs key is configured.
var ErrMissingAPIKey = errors.New("ElevenLabs API key is required")

// elevenCatalog is the fixed set of premade voices offered to clients.
var elevenCatalog = []Voice{
	{ID: "pNInz6obpgDQGcFmaJgB", Label: "Boris (ElevenLabs)"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Label: "Bella"},
	{ID: "ErXwobaYiN019PkySvjV", Label: "Antoni"},
	{ID: "21m00Tcm4TlvDq8ikWAM", Label: "Rachel"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Label: "Domi"},
}

// ElevenLabsConfig holds configuration for the ElevenLabs engine.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
	// RequestsPerMinute caps outgoing synthesis calls; 0 disables the cap.
	RequestsPerMinute int
	Timeout           time.Duration
}

// ElevenLabsEngine synthesizes MP3 audio through the ElevenLabs HTTP API.
type ElevenLabsEngine struct {
	config      ElevenLabsConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

type elevenVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenRequest struct {
	Text          string              `json:"text"`
	ModelID       string              `json:"model_id"`
	VoiceSettings elevenVoiceSettings `json:"voice_settings"`
}

// NewElevenLabsEngine creates a new ElevenLabs engine.
func NewElevenLabsEngine(cfg ElevenLabsConfig, logger *slog.Logger) (*ElevenLabsEngine, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	e := &ElevenLabsEngine{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
	if cfg.RequestsPerMinute > 0 {
		e.rateLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return e, nil
}

// Name returns the engine identifier.
func (e *ElevenLabsEngine) Name() string {
	return "eleven"
}

// Synthesize posts the text to the text-to-speech endpoint of the voice.
func (e *ElevenLabsEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if req.Voice == "" {
		req.Voice = elevenCatalog[0].ID
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(elevenRequest{
		Text:    req.Text,
		ModelID: e.config.ModelID,
		VoiceSettings: elevenVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", strings.TrimSuffix(e.config.BaseURL, "/"), req.Voice)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", e.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	e.logger.Debug("requesting elevenlabs synthesis", "voice", req.Voice, "text_length", len(req.Text))

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: elevenlabs status %d: %s", ErrSynthesisFailed, resp.StatusCode, string(respBody))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no audio output", ErrSynthesisFailed)
	}

	return &AudioResult{Data: data, ContentType: "audio/mpeg"}, nil
}

// Voices returns the premade catalog with the engine prefix applied.
func (e *ElevenLabsEngine) Voices(ctx context.Context) ([]Voice, error) {
	voices := make([]Voice, len(elevenCatalog))
	for i, v := range elevenCatalog {
		voices[i] = Voice{ID: e.Name() + ":" + v.ID, Label: v.Label, Engine: e.Name()}
	}
	return voices, nil
}
