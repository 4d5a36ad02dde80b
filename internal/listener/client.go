// Package listener assembles the listening client: the push subscription,
// the pause-queue, the pause mirror and the playback engine.
package listener

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/speakeasy/internal/ingress"
	"github.com/dgnsrekt/speakeasy/internal/pause"
	"github.com/dgnsrekt/speakeasy/internal/playback"
	"github.com/dgnsrekt/speakeasy/internal/queue"
	"github.com/dgnsrekt/speakeasy/internal/remote"
	"github.com/dgnsrekt/speakeasy/internal/speech"
)

// Client is the surface the UI layer talks to.
type Client struct {
	cfg    *Config
	logger *slog.Logger

	hub     *remote.Client
	pause   *pause.Controller
	queue   *queue.Coordinator
	engine  *playback.Engine
	ingress *ingress.Subscriber

	voiceMu sync.RWMutex
	voice   string

	playbackMu        sync.Mutex
	playbackListeners []func(speech.Request, bool)
}

// New wires a client that plays through out.
func New(cfg *Config, out playback.Output, logger *slog.Logger) *Client {
	hubClient := remote.NewClient(cfg.HubURL, cfg.HubBearerToken, cfg.SynthesisTimeout, logger)

	c := &Client{
		cfg:    cfg,
		logger: logger,
		hub:    hubClient,
		voice:  cfg.Voice,
	}

	c.pause = pause.NewController(hubClient, logger)
	c.engine = playback.NewEngine(hubClient, out, playback.Config{
		Capacity:         cfg.PlaybackCapacity,
		SynthesisTimeout: cfg.SynthesisTimeout,
		IdleTimeout:      cfg.AutoLeaveIdle,
	}, logger)
	c.queue = queue.NewCoordinator(c.pause, c.engine, queue.Config{
		MaxPending:   cfg.MaxPending,
		PollInterval: cfg.PollInterval,
	}, logger)
	c.ingress = ingress.NewSubscriber(ingress.Config{
		URL:         hubClient.EventsURL(),
		BearerToken: cfg.HubBearerToken,
	}, c.queue, c, logger)

	c.engine.SetStartCallback(func(req speech.Request) { c.notifyPlayback(req, true) })
	c.engine.SetFinishCallback(func(req speech.Request, err error) { c.notifyPlayback(req, false) })

	return c
}

// Hub returns the hub client the listener uses.
func (c *Client) Hub() *remote.Client { return c.hub }

// Run starts playback, adopts the hub's pause flag and consumes the push
// stream until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	c.engine.Start()
	defer c.engine.Stop()
	defer c.queue.Close()

	if paused, err := c.hub.Paused(ctx); err != nil {
		c.logger.Warn("could not read hub pause state, starting resumed", "error", err)
	} else {
		c.queue.SyncPause(paused)
	}

	c.logger.Info("listener started", "hub", c.hub.BaseURL(), "voice", c.CurrentVoice(), "paused", c.queue.Paused())
	return c.ingress.Run(ctx)
}

// SubmitUserText submits text as if it had arrived from the stream. An
// empty voice means the currently selected one.
func (c *Client) SubmitUserText(text, voice string) error {
	if voice == "" {
		voice = c.CurrentVoice()
	}
	req, err := speech.NewRequest(text, voice)
	if err != nil {
		return err
	}
	return c.queue.Submit(req)
}

// PreviewVoice plays the preview sentence in voice, after the current
// item. An empty voice means the currently selected one.
func (c *Client) PreviewVoice(ctx context.Context, voice string) error {
	if voice == "" {
		voice = c.CurrentVoice()
	}
	return c.engine.Preview(ctx, voice)
}

// TogglePause flips the pause state through the hub.
func (c *Client) TogglePause(ctx context.Context) (bool, error) {
	return c.queue.TogglePause(ctx)
}

// Paused returns the mirrored pause state.
func (c *Client) Paused() bool {
	return c.queue.Paused()
}

// SelectVoice changes the voice used for messages arriving from now on.
func (c *Client) SelectVoice(voice string) {
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()
	c.voice = voice
	c.logger.Info("voice selected", "voice", voice)
}

// CurrentVoice returns the selected voice.
func (c *Client) CurrentVoice() string {
	c.voiceMu.RLock()
	defer c.voiceMu.RUnlock()
	return c.voice
}

// Pending returns the held requests in playback order.
func (c *Client) Pending() []speech.Request {
	return c.queue.Refresh()
}

// Cancel removes a held request.
func (c *Client) Cancel(id string) bool {
	return c.queue.Cancel(id)
}

// Clear drops every held request.
func (c *Client) Clear() int {
	return c.queue.Clear()
}

// Playing returns the request currently being played, if any.
func (c *Client) Playing() (speech.Request, bool) {
	return c.engine.Current()
}

// OnQueueChanged registers fn for pause-queue snapshots.
func (c *Client) OnQueueChanged(fn func([]speech.Request)) {
	c.queue.OnChange(fn)
}

// OnPauseStateChanged registers fn for acknowledged pause changes.
func (c *Client) OnPauseStateChanged(fn func(paused bool)) {
	c.queue.OnPauseChange(fn)
}

// OnPlayback registers fn, called with playing=true when a request starts
// and playing=false when it finishes.
func (c *Client) OnPlayback(fn func(req speech.Request, playing bool)) {
	c.playbackMu.Lock()
	defer c.playbackMu.Unlock()
	c.playbackListeners = append(c.playbackListeners, fn)
}

// OnIdle sets the function called after AUTO_LEAVE_IDLE without playback.
func (c *Client) OnIdle(fn func()) {
	c.engine.SetIdleCallback(fn)
}

func (c *Client) notifyPlayback(req speech.Request, playing bool) {
	c.playbackMu.Lock()
	listeners := append([]func(speech.Request, bool){}, c.playbackListeners...)
	c.playbackMu.Unlock()

	for _, fn := range listeners {
		fn(req, playing)
	}
}
