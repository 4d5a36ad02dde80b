package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/speakeasy/internal/logging"
	"github.com/dgnsrekt/speakeasy/internal/pause"
	"github.com/dgnsrekt/speakeasy/internal/playback"
	"github.com/dgnsrekt/speakeasy/internal/speech"
)

// testTimeout is the maximum time to wait for any test condition.
// This is a failsafe, not primary synchronization.
const testTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return logging.New("error", "text")
}

// fakePlayer records every request handed to it.
type fakePlayer struct {
	mu   sync.Mutex
	reqs []speech.Request
	err  error
}

func (p *fakePlayer) Enqueue(req speech.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reqs = append(p.reqs, req)
	return nil
}

func (p *fakePlayer) EnqueueHeld(reqs []speech.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reqs = append(p.reqs, reqs...)
	return nil
}

func (p *fakePlayer) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return speech.Texts(p.reqs)
}

// textSynth returns the text itself as audio.
type textSynth struct{}

func (textSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return []byte(text), nil
}

// blockingOutput holds every play until release is closed.
type blockingOutput struct {
	release chan struct{}
}

func (o *blockingOutput) Play(ctx context.Context, audio []byte) error {
	select {
	case <-o.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// gatedAuthority acknowledges every request, optionally blocking on gate
// after signalling entered.
type gatedAuthority struct {
	entered chan bool
	gate    chan struct{}
	err     error
}

func (a *gatedAuthority) SetPaused(ctx context.Context, paused bool) (bool, error) {
	if a.entered != nil {
		a.entered <- paused
	}
	if a.gate != nil {
		<-a.gate
	}
	if a.err != nil {
		return false, a.err
	}
	return paused, nil
}

func newCoordinator(auth pause.Authority, player Player, cfg Config) *Coordinator {
	return NewCoordinator(pause.NewController(auth, testLogger()), player, cfg, testLogger())
}

func submit(t *testing.T, c *Coordinator, text string) {
	t.Helper()
	req, err := speech.NewRequest(text, "en-us")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Submit(req); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
}

func assertTexts(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", label, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v, got %v", label, want, got)
		}
	}
}

func TestCoordinatorPauseResumeScenario(t *testing.T) {
	player := &fakePlayer{}
	c := newCoordinator(&gatedAuthority{}, player, Config{})
	defer c.Close()

	submit(t, c, "Hello")
	assertTexts(t, "after hello", player.Texts(), []string{"Hello"})

	paused, err := c.TogglePause(context.Background())
	if err != nil || !paused {
		t.Fatalf("expected paused, got %v, %v", paused, err)
	}

	submit(t, c, "A")
	submit(t, c, "B")
	assertTexts(t, "queue view", speech.Texts(c.Refresh()), []string{"A", "B"})
	assertTexts(t, "player while paused", player.Texts(), []string{"Hello"})

	paused, err = c.TogglePause(context.Background())
	if err != nil || paused {
		t.Fatalf("expected resumed, got %v, %v", paused, err)
	}

	assertTexts(t, "player after resume", player.Texts(), []string{"Hello", "A", "B"})
	if n := len(c.Refresh()); n != 0 {
		t.Errorf("expected empty queue after resume, got %d", n)
	}
}

func TestCoordinatorSubmitDuringResumeKeepsOrder(t *testing.T) {
	player := &fakePlayer{}
	auth := &gatedAuthority{}
	c := newCoordinator(auth, player, Config{})
	defer c.Close()

	c.TogglePause(context.Background())
	submit(t, c, "A")
	submit(t, c, "B")

	auth.entered = make(chan bool, 1)
	auth.gate = make(chan struct{})

	toggled := make(chan struct{})
	go func() {
		defer close(toggled)
		c.TogglePause(context.Background())
	}()

	select {
	case <-auth.entered:
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for resume request")
	}

	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		req, _ := speech.NewRequest("C", "en-us")
		c.Submit(req)
	}()

	// Give the submit a chance to run ahead of the drain if it could.
	time.Sleep(20 * time.Millisecond)
	close(auth.gate)

	for _, ch := range []chan struct{}{toggled, submitted} {
		select {
		case <-ch:
		case <-time.After(testTimeout):
			t.Fatal("timeout waiting for resume to finish")
		}
	}

	assertTexts(t, "player", player.Texts(), []string{"A", "B", "C"})
	if n := len(c.Refresh()); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

func TestCoordinatorSubmitDuringPauseIsHeld(t *testing.T) {
	player := &fakePlayer{}
	auth := &gatedAuthority{entered: make(chan bool, 1), gate: make(chan struct{})}
	c := newCoordinator(auth, player, Config{})
	defer c.Close()

	toggled := make(chan struct{})
	go func() {
		defer close(toggled)
		c.TogglePause(context.Background())
	}()
	<-auth.entered

	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		req, _ := speech.NewRequest("X", "en-us")
		c.Submit(req)
	}()

	time.Sleep(20 * time.Millisecond)
	close(auth.gate)
	<-toggled
	<-submitted

	if n := len(player.Texts()); n != 0 {
		t.Errorf("expected nothing played, got %v", player.Texts())
	}
	assertTexts(t, "queue", speech.Texts(c.Refresh()), []string{"X"})
}

func TestCoordinatorToggleFailure(t *testing.T) {
	player := &fakePlayer{}
	auth := &gatedAuthority{}
	c := newCoordinator(auth, player, Config{})
	defer c.Close()

	c.TogglePause(context.Background())
	submit(t, c, "A")

	auth.err = errors.New("hub unreachable")
	paused, err := c.TogglePause(context.Background())

	var syncErr *speech.SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if !paused || !c.Paused() {
		t.Error("expected to remain paused")
	}
	assertTexts(t, "queue", speech.Texts(c.Refresh()), []string{"A"})
	if n := len(player.Texts()); n != 0 {
		t.Errorf("expected nothing played, got %v", player.Texts())
	}
}

func TestCoordinatorCapacity(t *testing.T) {
	c := newCoordinator(&gatedAuthority{}, &fakePlayer{}, Config{MaxPending: 2})
	defer c.Close()

	c.TogglePause(context.Background())
	submit(t, c, "one")
	submit(t, c, "two")

	req, _ := speech.NewRequest("three", "en-us")
	if err := c.Submit(req); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestCoordinatorRejectsEmptyText(t *testing.T) {
	player := &fakePlayer{}
	c := newCoordinator(&gatedAuthority{}, player, Config{})
	defer c.Close()

	err := c.Submit(speech.Request{ID: "x", Text: "   "})
	if !errors.Is(err, speech.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if n := len(player.Texts()); n != 0 {
		t.Errorf("expected nothing enqueued, got %d", n)
	}
}

func TestCoordinatorPlayerError(t *testing.T) {
	player := &fakePlayer{err: errors.New("full")}
	c := newCoordinator(&gatedAuthority{}, player, Config{})
	defer c.Close()

	req, _ := speech.NewRequest("hi", "en-us")
	if err := c.Submit(req); err == nil {
		t.Error("expected player error to surface")
	}
}

func TestCoordinatorCancelAndClear(t *testing.T) {
	c := newCoordinator(&gatedAuthority{}, &fakePlayer{}, Config{})
	defer c.Close()

	c.TogglePause(context.Background())
	submit(t, c, "a")
	submit(t, c, "b")
	submit(t, c, "c")

	held := c.Refresh()
	if !c.Cancel(held[1].ID) {
		t.Error("expected cancel to find the request")
	}
	if c.Cancel("missing") {
		t.Error("expected cancel of unknown ID to fail")
	}
	assertTexts(t, "after cancel", speech.Texts(c.Refresh()), []string{"a", "c"})

	if n := c.Clear(); n != 2 {
		t.Errorf("expected 2 cleared, got %d", n)
	}
	if n := len(c.Refresh()); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

func TestCoordinatorNotifications(t *testing.T) {
	var snapshots [][]string
	var pauses []bool
	c := newCoordinator(&gatedAuthority{}, &fakePlayer{}, Config{PollInterval: time.Hour})
	defer c.Close()

	c.OnChange(func(reqs []speech.Request) { snapshots = append(snapshots, speech.Texts(reqs)) })
	c.OnPauseChange(func(p bool) {
		pauses = append(pauses, p)
		// Callbacks run outside the coordinator lock.
		c.Refresh()
	})

	c.TogglePause(context.Background())
	submit(t, c, "a")
	c.TogglePause(context.Background())

	if len(pauses) != 2 || !pauses[0] || pauses[1] {
		t.Errorf("unexpected pause notifications: %v", pauses)
	}
	if len(snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %v", snapshots)
	}
	assertTexts(t, "after submit", snapshots[1], []string{"a"})
	assertTexts(t, "after resume", snapshots[2], []string{})
}

func TestCoordinatorPollerRunsOnlyWhilePaused(t *testing.T) {
	var polls atomic.Int32
	c := newCoordinator(&gatedAuthority{}, &fakePlayer{}, Config{PollInterval: 5 * time.Millisecond})
	defer c.Close()

	c.OnChange(func([]speech.Request) { polls.Add(1) })

	c.TogglePause(context.Background())

	deadline := time.After(testTimeout)
	for polls.Load() < 4 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for poller")
		case <-time.After(5 * time.Millisecond):
		}
	}

	c.TogglePause(context.Background())
	time.Sleep(20 * time.Millisecond)
	settled := polls.Load()
	time.Sleep(50 * time.Millisecond)

	if got := polls.Load(); got != settled {
		t.Errorf("poller kept running after resume: %d -> %d", settled, got)
	}
}

func TestCoordinatorSyncPause(t *testing.T) {
	player := &fakePlayer{}
	c := newCoordinator(&gatedAuthority{}, player, Config{})
	defer c.Close()

	var pauses []bool
	c.OnPauseChange(func(p bool) { pauses = append(pauses, p) })

	c.SyncPause(true)
	submit(t, c, "held")
	if n := len(player.Texts()); n != 0 {
		t.Errorf("expected request held after sync, got %v", player.Texts())
	}

	c.SyncPause(true)
	c.SyncPause(false)
	assertTexts(t, "player", player.Texts(), []string{"held"})

	if len(pauses) != 2 {
		t.Errorf("expected 2 pause notifications, got %v", pauses)
	}
}

func TestCoordinatorResumeKeepsHeldRequestsWhenPlayerIsBusy(t *testing.T) {
	out := &blockingOutput{release: make(chan struct{})}
	engine := playback.NewEngine(textSynth{}, out, playback.Config{Capacity: 100}, testLogger())
	started := make(chan struct{}, 1)
	engine.SetStartCallback(func(speech.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
	})
	engine.Start()
	defer engine.Stop()
	defer close(out.release)

	c := newCoordinator(&gatedAuthority{}, engine, Config{MaxPending: 100, PollInterval: time.Hour})
	defer c.Close()

	for i := 0; i < 5; i++ {
		submit(t, c, fmt.Sprintf("live %d", i))
	}
	select {
	case <-started:
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for first request to start")
	}

	if _, err := c.TogglePause(context.Background()); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	for i := 0; i < 100; i++ {
		submit(t, c, fmt.Sprintf("held %d", i))
	}
	if _, err := c.TogglePause(context.Background()); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	if n := engine.Len(); n != 104 {
		t.Errorf("expected 104 requests waiting to play, got %d", n)
	}
	if n := len(c.Refresh()); n != 0 {
		t.Errorf("expected empty pause queue after resume, got %d", n)
	}
}

func TestCoordinatorListenerCanRegisterListeners(t *testing.T) {
	c := newCoordinator(&gatedAuthority{}, &fakePlayer{}, Config{PollInterval: time.Hour})
	defer c.Close()

	var registered atomic.Int32
	c.OnChange(func([]speech.Request) {
		c.OnChange(func([]speech.Request) {})
		registered.Add(1)
	})
	c.OnPauseChange(func(bool) {
		c.OnPauseChange(func(bool) {})
		registered.Add(1)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.TogglePause(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("timeout: listener registration from a callback deadlocked")
	}
	if n := registered.Load(); n != 2 {
		t.Errorf("expected both callbacks to run, got %d", n)
	}
}
