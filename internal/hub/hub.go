// Package hub is the remote authority: it fans speak messages out to every
// connected listener, owns the pause flag and remembers recent synthesis.
package hub

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrBacklogFull is returned when no listener is connected and the
	// offline backlog is at capacity.
	ErrBacklogFull = errors.New("offline backlog is full")
)

// SubscriberBuffer is the per-listener channel capacity. A listener that
// falls this far behind is disconnected.
const SubscriberBuffer = 64

// Message is one speak request as broadcast to listeners.
type Message struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// Config holds hub settings.
type Config struct {
	BacklogCapacity int
	HistorySize     int
}

// Hub routes speak messages to subscribers. Messages broadcast while no
// subscriber is connected are kept and flushed to the next one.
type Hub struct {
	logger *slog.Logger
	cfg    Config

	mu          sync.Mutex
	subscribers map[chan Message]struct{}
	backlog     []Message
	paused      bool
	history     []string
}

// New creates a hub.
func New(cfg Config, logger *slog.Logger) *Hub {
	if cfg.BacklogCapacity <= 0 {
		cfg.BacklogCapacity = 100
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 10
	}
	return &Hub{
		logger:      logger,
		cfg:         cfg,
		subscribers: make(map[chan Message]struct{}),
	}
}

// Subscribe registers a listener. The backlog, if any, is delivered first.
// The returned channel is closed when the listener is dropped for falling
// behind or after unsubscribe is called.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Message, max(SubscriberBuffer, len(h.backlog)))
	for _, msg := range h.backlog {
		ch <- msg
	}
	if n := len(h.backlog); n > 0 {
		h.logger.Info("flushed offline backlog", "messages", n)
	}
	h.backlog = nil
	h.subscribers[ch] = struct{}{}

	h.logger.Info("listener subscribed", "subscribers", len(h.subscribers))

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.removeLocked(ch)
			h.logger.Info("listener unsubscribed", "subscribers", len(h.subscribers))
		})
	}
	return ch, unsubscribe
}

// Broadcast sends msg to every subscriber in call order. With no
// subscriber it is kept in the backlog.
func (h *Hub) Broadcast(msg Message) (delivered int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subscribers) == 0 {
		if len(h.backlog) >= h.cfg.BacklogCapacity {
			h.logger.Warn("offline backlog full, dropping message", "capacity", h.cfg.BacklogCapacity)
			return 0, ErrBacklogFull
		}
		h.backlog = append(h.backlog, msg)
		h.logger.Debug("no listeners, message held", "backlog", len(h.backlog))
		return 0, nil
	}

	for ch := range h.subscribers {
		select {
		case ch <- msg:
			delivered++
		default:
			h.logger.Warn("listener too slow, disconnecting")
			h.removeLocked(ch)
		}
	}
	return delivered, nil
}

func (h *Hub) removeLocked(ch chan Message) {
	if _, ok := h.subscribers[ch]; !ok {
		return
	}
	delete(h.subscribers, ch)
	close(ch)
}

// Subscribers returns the number of connected listeners.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Backlog returns the messages held for the next subscriber.
func (h *Hub) Backlog() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message{}, h.backlog...)
}

// SetPaused records the pause flag and returns it.
func (h *Hub) SetPaused(paused bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.paused != paused {
		h.logger.Info("pause state changed", "paused", paused)
	}
	h.paused = paused
	return h.paused
}

// Paused returns the pause flag.
func (h *Hub) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

// RecordHistory remembers a synthesized text, evicting the oldest beyond
// HistorySize.
func (h *Hub) RecordHistory(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.history) >= h.cfg.HistorySize {
		h.history = h.history[len(h.history)-h.cfg.HistorySize+1:]
	}
	h.history = append(h.history, text)
}

// History returns recent synthesized texts, oldest first.
func (h *Hub) History() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.history...)
}
