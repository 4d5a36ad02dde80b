// Package remote is the listening client's view of the hub: synthesis,
// the pause flag, the undelivered backlog, the voice catalog and speak
// submission all go through Client.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgnsrekt/speakeasy/internal/speech"
)

// maxAudioBytes bounds a single synthesized utterance.
const maxAudioBytes = 32 << 20

// ErrAudioTooLarge is returned when synthesized audio exceeds the size cap.
var ErrAudioTooLarge = errors.New("synthesized audio too large")

// Voice is one entry of the hub's voice catalog.
type Voice struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Engine string `json:"engine"`
}

// StatusError is returned for non-2xx hub responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the hub HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	maxAudio   int64
}

// NewClient creates a hub client. timeout bounds every request; streaming
// endpoints are not served by this client.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		maxAudio:   maxAudioBytes,
	}
}

// BaseURL returns the hub address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the bearer token sent with every request.
func (c *Client) Token() string { return c.token }

type textVoice struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type pauseBody struct {
	Paused *bool `json:"paused"`
}

// Synthesize converts text to audio bytes through the hub.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/tts", textVoice{Text: text, Voice: voice})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxAudio+1))
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if int64(len(data)) > c.maxAudio {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrAudioTooLarge, c.maxAudio)
	}

	c.logger.Debug("hub synthesis complete", "voice", voice, "bytes", len(data),
		"content_type", resp.Header.Get("Content-Type"))
	return data, nil
}

// SetPaused asks the hub to set the pause flag and returns the state it
// acknowledged.
func (c *Client) SetPaused(ctx context.Context, paused bool) (bool, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/pause", pauseBody{Paused: &paused})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return decodePause(resp.Body)
}

// Paused reads the hub's pause flag.
func (c *Client) Paused(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/pause", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return decodePause(resp.Body)
}

func decodePause(r io.Reader) (bool, error) {
	var body pauseBody
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return false, fmt.Errorf("decoding pause state: %w", err)
	}
	if body.Paused == nil {
		return false, speech.ErrNotAcknowledged
	}
	return *body.Paused, nil
}

// Backlog returns the items the hub is still holding for delivery.
// Bare text items get voice.
func (c *Client) Backlog(ctx context.Context, voice string) ([]speech.Request, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/queue", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading queue: %w", err)
	}
	return DecodeQueueItems(data, voice)
}

// Speak submits text to the hub for broadcast to every listener.
func (c *Client) Speak(ctx context.Context, text, voice string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/speak", textVoice{Text: text, Voice: voice})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Voices lists the voices the hub can synthesize.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/voices", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("decoding voices: %w", err)
	}
	return voices, nil
}

// History returns the most recently synthesized texts, oldest first.
func (c *Client) History(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/history", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var history []string
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return history, nil
}

// EventsURL is the push channel endpoint.
func (c *Client) EventsURL() string {
	return c.baseURL + "/events"
}

// PreviewURL is the hub's fixed-sentence preview endpoint for voice.
func (c *Client) PreviewURL(voice string) string {
	return c.baseURL + "/api/preview?voice=" + url.QueryEscape(voice)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return resp, nil
}
