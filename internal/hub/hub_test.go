package hub

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return msg
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestHubBroadcastFanOut(t *testing.T) {
	h := New(Config{}, newTestLogger())

	a, unsubA := h.Subscribe()
	defer unsubA()
	b, unsubB := h.Subscribe()
	defer unsubB()

	for _, text := range []string{"one", "two"} {
		n, err := h.Broadcast(Message{Text: text})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 2 {
			t.Errorf("expected delivery to 2 listeners, got %d", n)
		}
	}

	for _, ch := range []<-chan Message{a, b} {
		if got := receive(t, ch).Text; got != "one" {
			t.Errorf("expected one, got %q", got)
		}
		if got := receive(t, ch).Text; got != "two" {
			t.Errorf("expected two, got %q", got)
		}
	}
}

func TestHubOfflineBacklog(t *testing.T) {
	h := New(Config{BacklogCapacity: 2}, newTestLogger())

	h.Broadcast(Message{Text: "a"})
	h.Broadcast(Message{Text: "b", Voice: "en-gb"})
	if _, err := h.Broadcast(Message{Text: "c"}); !errors.Is(err, ErrBacklogFull) {
		t.Errorf("expected ErrBacklogFull, got %v", err)
	}

	backlog := h.Backlog()
	if len(backlog) != 2 || backlog[1].Voice != "en-gb" {
		t.Fatalf("unexpected backlog: %+v", backlog)
	}

	ch, unsub := h.Subscribe()
	defer unsub()

	if got := receive(t, ch).Text; got != "a" {
		t.Errorf("expected a, got %q", got)
	}
	if got := receive(t, ch).Text; got != "b" {
		t.Errorf("expected b, got %q", got)
	}
	if n := len(h.Backlog()); n != 0 {
		t.Errorf("expected backlog flushed, got %d", n)
	}

	// Live messages follow the flushed backlog.
	h.Broadcast(Message{Text: "live"})
	if got := receive(t, ch).Text; got != "live" {
		t.Errorf("expected live, got %q", got)
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := New(Config{}, newTestLogger())

	ch, unsub := h.Subscribe()
	defer unsub()

	for i := 0; i < SubscriberBuffer; i++ {
		h.Broadcast(Message{Text: "fill"})
	}
	if n, _ := h.Broadcast(Message{Text: "overflow"}); n != 0 {
		t.Errorf("expected overflow not delivered, got %d", n)
	}
	if h.Subscribers() != 0 {
		t.Errorf("expected slow listener removed, got %d", h.Subscribers())
	}

	count := 0
	for range ch {
		count++
	}
	if count != SubscriberBuffer {
		t.Errorf("expected %d buffered messages before close, got %d", SubscriberBuffer, count)
	}

	// With nobody connected the next message is held.
	h.Broadcast(Message{Text: "held"})
	if n := len(h.Backlog()); n != 1 {
		t.Errorf("expected 1 held message, got %d", n)
	}
}

func TestHubUnsubscribeIdempotent(t *testing.T) {
	h := New(Config{}, newTestLogger())

	_, unsub := h.Subscribe()
	unsub()
	unsub()

	if h.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", h.Subscribers())
	}
}

func TestHubPause(t *testing.T) {
	h := New(Config{}, newTestLogger())

	if h.Paused() {
		t.Error("expected hub to start resumed")
	}
	if !h.SetPaused(true) || !h.Paused() {
		t.Error("expected paused")
	}
	if h.SetPaused(false) || h.Paused() {
		t.Error("expected resumed")
	}
}

func TestHubHistory(t *testing.T) {
	h := New(Config{HistorySize: 3}, newTestLogger())

	for _, text := range []string{"1", "2", "3", "4", "5"} {
		h.RecordHistory(text)
	}

	got := h.History()
	want := []string{"3", "4", "5"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
