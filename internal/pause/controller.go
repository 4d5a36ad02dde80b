// Package pause mirrors the hub's pause flag locally.
package pause

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/speakeasy/internal/speech"
)

// Authority owns the pause flag. SetPaused returns the acknowledged state.
type Authority interface {
	SetPaused(ctx context.Context, paused bool) (bool, error)
}

// Controller holds the local mirror of the pause flag. The mirror only
// changes when the authority acknowledges a toggle or reports its state
// through Sync.
type Controller struct {
	authority Authority
	logger    *slog.Logger

	mu     sync.RWMutex
	paused bool

	// toggleMu serializes round trips so two toggles never race.
	toggleMu sync.Mutex
}

// NewController creates a controller that starts in the resumed state.
func NewController(authority Authority, logger *slog.Logger) *Controller {
	return &Controller{
		authority: authority,
		logger:    logger,
	}
}

// Current returns the mirrored pause state without blocking on the hub.
func (c *Controller) Current() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Toggle asks the authority for the opposite of the current state and
// mirrors whatever it acknowledges. On failure the mirror is unchanged and
// a *speech.SyncError is returned.
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	before := c.Current()
	want := !before

	got, err := c.authority.SetPaused(ctx, want)
	if err != nil {
		c.logger.Warn("pause toggle failed", "requested", want, "error", err)
		return before, &speech.SyncError{Op: "toggle pause", Err: err}
	}

	if got != want {
		c.logger.Warn("hub acknowledged a different pause state", "requested", want, "acknowledged", got)
	}

	c.set(got)
	return got, nil
}

// Sync overwrites the mirror with a state read from the authority, such as
// at startup.
func (c *Controller) Sync(paused bool) {
	c.set(paused)
}

func (c *Controller) set(paused bool) {
	c.mu.Lock()
	changed := c.paused != paused
	c.paused = paused
	c.mu.Unlock()

	if changed {
		c.logger.Info("pause state changed", "paused", paused)
	}
}
