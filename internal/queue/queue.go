// Package queue holds requests that arrive while playback is paused and
// hands them to the player, in arrival order, on resume.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/speakeasy/internal/speech"
)

// ErrQueueFull is returned when the pause-queue is at capacity.
var ErrQueueFull = errors.New("pause queue is full")

// Player accepts requests for playback. Neither method may block.
// EnqueueHeld takes requests already accepted by the pause-queue and must
// not reject them for capacity.
type Player interface {
	Enqueue(req speech.Request) error
	EnqueueHeld(reqs []speech.Request) error
}

// PauseState is the local mirror of the pause flag.
type PauseState interface {
	Current() bool
	Toggle(ctx context.Context) (bool, error)
	Sync(paused bool)
}

// Config holds coordinator settings.
type Config struct {
	MaxPending   int
	PollInterval time.Duration
}

// Coordinator routes every request either to the player (resumed) or to
// the pause-queue (paused). While resumed the pause-queue is empty.
type Coordinator struct {
	pause  PauseState
	player Player
	logger *slog.Logger
	cfg    Config

	// mu guards items and is held across pause transitions, so a Submit
	// observes either the old state and its routing or the new one.
	mu       sync.Mutex
	items    []speech.Request
	stopPoll context.CancelFunc
	closed   bool

	listenersMu    sync.Mutex
	listeners      []func([]speech.Request)
	pauseListeners []func(bool)
}

// NewCoordinator creates a coordinator over an existing pause mirror.
func NewCoordinator(pause PauseState, player Player, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Coordinator{
		pause:  pause,
		player: player,
		logger: logger,
		cfg:    cfg,
	}
}

// OnChange registers fn to receive a snapshot of the pause-queue after each
// change, and periodically while paused.
func (c *Coordinator) OnChange(fn func([]speech.Request)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// OnPauseChange registers fn to be called after each pause transition,
// once the coordinator lock is released.
func (c *Coordinator) OnPauseChange(fn func(paused bool)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.pauseListeners = append(c.pauseListeners, fn)
}

// Submit routes one request. While paused it is appended to the
// pause-queue; otherwise it goes straight to the player.
func (c *Coordinator) Submit(req speech.Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return speech.ErrEmptyText
	}

	c.mu.Lock()
	if !c.pause.Current() {
		err := c.player.Enqueue(req)
		c.mu.Unlock()
		if err != nil {
			c.logger.Warn("player rejected request", "request_id", req.ID, "error", err)
		}
		return err
	}

	if len(c.items) >= c.cfg.MaxPending {
		c.mu.Unlock()
		c.logger.Warn("pause queue full, dropping request", "request_id", req.ID)
		return ErrQueueFull
	}

	c.items = append(c.items, req)
	c.logger.Debug("request held while paused", "request_id", req.ID, "pending", len(c.items))
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return nil
}

// Refresh returns the current pause-queue contents in order.
func (c *Coordinator) Refresh() []speech.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Paused reports the mirrored pause state.
func (c *Coordinator) Paused() bool {
	return c.pause.Current()
}

// TogglePause flips the pause state through the authority. On resume the
// pause-queue is handed to the player before any later Submit is routed.
// On failure nothing changes and the *speech.SyncError is returned.
func (c *Coordinator) TogglePause(ctx context.Context) (bool, error) {
	c.mu.Lock()

	before := c.pause.Current()
	after, err := c.pause.Toggle(ctx)
	if err != nil {
		c.mu.Unlock()
		return before, err
	}

	c.transition(before, after)
	return after, nil
}

// SyncPause adopts a pause state read from the authority, such as at
// startup, with the same effects as an acknowledged toggle.
func (c *Coordinator) SyncPause(paused bool) {
	c.mu.Lock()
	before := c.pause.Current()
	c.pause.Sync(paused)
	c.transition(before, paused)
}

// transition applies a pause change and releases c.mu.
func (c *Coordinator) transition(before, after bool) {
	if after == before {
		c.mu.Unlock()
		return
	}

	if after {
		c.startPollerLocked()
	} else {
		c.stopPollerLocked()
		c.drainLocked()
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notifyPause(after)
	c.notify(snapshot)
}

// Cancel removes a held request by ID.
func (c *Coordinator) Cancel(id string) bool {
	c.mu.Lock()
	removed := false
	for i, req := range c.items {
		if req.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			removed = true
			break
		}
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if removed {
		c.logger.Info("held request cancelled", "request_id", id)
		c.notify(snapshot)
	}
	return removed
}

// Clear drops every held request and returns how many were dropped.
func (c *Coordinator) Clear() int {
	c.mu.Lock()
	cleared := len(c.items)
	c.items = nil
	c.mu.Unlock()

	if cleared > 0 {
		c.logger.Info("pause queue cleared", "requests_cleared", cleared)
		c.notify(nil)
	}
	return cleared
}

// Close stops the poller. Held requests stay where they are.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopPollerLocked()
}

// drainLocked hands the pause-queue to the player head first.
func (c *Coordinator) drainLocked() {
	items := c.items
	c.items = nil
	if len(items) == 0 {
		return
	}

	if err := c.player.EnqueueHeld(items); err != nil {
		c.logger.Error("player rejected held requests on resume", "requests", len(items), "error", err)
		return
	}
	c.logger.Info("pause queue drained", "requests", len(items))
}

func (c *Coordinator) snapshotLocked() []speech.Request {
	return append([]speech.Request(nil), c.items...)
}

func (c *Coordinator) startPollerLocked() {
	if c.closed || c.stopPoll != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopPoll = cancel
	go c.poll(ctx)
}

func (c *Coordinator) stopPollerLocked() {
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
}

// poll republishes the pause-queue while paused so observers converge even
// if they missed a change.
func (c *Coordinator) poll(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := c.Refresh()
			if ctx.Err() != nil {
				return
			}
			c.notify(snapshot)
		}
	}
}

func (c *Coordinator) notify(snapshot []speech.Request) {
	c.listenersMu.Lock()
	listeners := append(([]func([]speech.Request))(nil), c.listeners...)
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (c *Coordinator) notifyPause(paused bool) {
	c.listenersMu.Lock()
	listeners := append(([]func(bool))(nil), c.pauseListeners...)
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(paused)
	}
}
