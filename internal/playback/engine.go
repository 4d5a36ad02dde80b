// Package playback turns speech requests into audio and plays them one at a
// time through a single worker goroutine.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/speakeasy/internal/speech"
)

var (
	// ErrQueueFull is returned when the playback queue is at capacity.
	ErrQueueFull = errors.New("playback queue is full")
	// ErrClosed is returned when attempting to use a stopped engine.
	ErrClosed = errors.New("playback engine is closed")
	// ErrEmptyAudio is returned when synthesis produced no bytes.
	ErrEmptyAudio = errors.New("synthesis returned no audio")
)

// DefaultPreviewText is spoken when previewing a voice.
const DefaultPreviewText = "Hi! I am going to sound like this."

// Synthesizer converts text to encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Output plays encoded audio and returns when playback has ended.
type Output interface {
	Play(ctx context.Context, audio []byte) error
}

// Config holds engine settings.
type Config struct {
	Capacity         int
	SynthesisTimeout time.Duration
	IdleTimeout      time.Duration
	PreviewText      string
}

type previewJob struct {
	voice string
	audio []byte
	done  chan error
}

// Engine is a bounded FIFO of speech requests with a single playback
// worker. At most one audio is audible at any instant.
type Engine struct {
	synth  Synthesizer
	out    Output
	logger *slog.Logger
	cfg    Config

	mu           sync.Mutex
	pending      []speech.Request
	current      *speech.Request
	closed       bool
	onStart      func(speech.Request)
	onFinish     func(speech.Request, error)
	idleCallback func()

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
	stopCh    chan struct{}
	enqueueCh chan struct{}
	previewCh chan *previewJob
}

// NewEngine creates a playback engine. Call Start to begin playing.
func NewEngine(synth Synthesizer, out Output, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100
	}
	if cfg.PreviewText == "" {
		cfg.PreviewText = DefaultPreviewText
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		synth:     synth,
		out:       out,
		logger:    logger,
		cfg:       cfg,
		pending:   make([]speech.Request, 0, cfg.Capacity),
		ctx:       ctx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
		enqueueCh: make(chan struct{}, 1),
		previewCh: make(chan *previewJob),
	}
}

// SetStartCallback sets the function called when a request starts playing.
func (e *Engine) SetStartCallback(fn func(speech.Request)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStart = fn
}

// SetFinishCallback sets the function called when a request has finished,
// successfully or not. err is nil on success.
func (e *Engine) SetFinishCallback(fn func(speech.Request, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFinish = fn
}

// SetIdleCallback sets the function called when the engine has been idle
// for IdleTimeout.
func (e *Engine) SetIdleCallback(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.idleCallback = fn
}

// Enqueue appends a request to the playback queue. It never blocks.
func (e *Engine) Enqueue(req speech.Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	if len(e.pending) >= e.cfg.Capacity {
		return ErrQueueFull
	}

	e.pending = append(e.pending, req)
	e.logger.Debug("request enqueued", "request_id", req.ID, "queue_depth", len(e.pending))

	select {
	case e.enqueueCh <- struct{}{}:
	default:
	}

	return nil
}

// EnqueueHeld appends requests that were already accepted elsewhere, such
// as a pause-queue being drained on resume. Capacity does not apply; only a
// closed engine rejects them.
func (e *Engine) EnqueueHeld(reqs []speech.Request) error {
	if len(reqs) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	e.pending = append(e.pending, reqs...)
	e.logger.Debug("held requests enqueued", "requests", len(reqs), "queue_depth", len(e.pending))

	select {
	case e.enqueueCh <- struct{}{}:
	default:
	}

	return nil
}

// Len returns the number of requests waiting to play, excluding the
// current one.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Current returns the request being synthesized or played, if any.
func (e *Engine) Current() (speech.Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return speech.Request{}, false
	}
	return *e.current, true
}

// Preview synthesizes the preview text in voice right away and plays it
// once the current request, if any, has finished. It returns after the
// preview has played.
func (e *Engine) Preview(ctx context.Context, voice string) error {
	if e.isClosed() {
		return ErrClosed
	}

	audio, err := e.synthesize(ctx, e.cfg.PreviewText, voice)
	if err != nil {
		return err
	}

	job := &previewJob{voice: voice, audio: audio, done: make(chan error, 1)}
	select {
	case e.previewCh <- job:
	case <-e.stopCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins the playback worker goroutine.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.worker()
}

// Stop cancels the current playback and stops the worker. Pending requests
// are dropped.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		dropped := len(e.pending)
		e.pending = nil
		e.mu.Unlock()

		e.cancel()
		close(e.stopCh)
		e.wg.Wait()

		e.logger.Info("playback engine stopped", "dropped", dropped)
	})
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// worker is the single playback goroutine.
func (e *Engine) worker() {
	defer e.wg.Done()

	var idleTimer *time.Timer
	var idleTimerCh <-chan time.Time

	stopIdleTimer := func() {
		if idleTimer != nil {
			idleTimer.Stop()
			idleTimerCh = nil
		}
	}

	for {
		// A waiting preview goes before the next queued request.
		select {
		case job := <-e.previewCh:
			stopIdleTimer()
			e.playPreview(job)
			continue
		default:
		}

		if req, ok := e.dequeue(); ok {
			stopIdleTimer()
			e.process(req)
			continue
		}

		if idleTimerCh == nil && e.cfg.IdleTimeout > 0 {
			idleTimer = time.NewTimer(e.cfg.IdleTimeout)
			idleTimerCh = idleTimer.C
		}

		select {
		case <-e.stopCh:
			stopIdleTimer()
			return
		case <-e.enqueueCh:
			continue
		case job := <-e.previewCh:
			stopIdleTimer()
			e.playPreview(job)
		case <-idleTimerCh:
			e.mu.Lock()
			callback := e.idleCallback
			e.mu.Unlock()

			if callback != nil {
				e.logger.Info("idle timeout reached")
				callback()
			}
			idleTimerCh = nil
		}
	}
}

func (e *Engine) dequeue() (speech.Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) == 0 {
		return speech.Request{}, false
	}
	req := e.pending[0]
	e.pending = e.pending[1:]
	return req, true
}

// process synthesizes and plays one request. The slot is released on every
// exit path.
func (e *Engine) process(req speech.Request) {
	e.mu.Lock()
	ctx, cancel := context.WithCancel(e.ctx)
	e.current = &req
	onStart, onFinish := e.onStart, e.onFinish
	e.mu.Unlock()

	var err error
	defer func() {
		cancel()
		e.mu.Lock()
		e.current = nil
		e.mu.Unlock()

		if onFinish != nil {
			onFinish(req, err)
		}
	}()

	if onStart != nil {
		onStart(req)
	}

	e.logger.Info("processing request", "request_id", req.ID, "voice", req.Voice, "text_length", len(req.Text))

	err = e.play(ctx, req)
	switch {
	case err == nil:
		e.logger.Info("request completed", "request_id", req.ID)
	case errors.Is(err, context.Canceled):
		e.logger.Info("request cancelled", "request_id", req.ID)
	default:
		var synthErr *speech.SynthesisError
		if errors.As(err, &synthErr) {
			e.logger.Warn("skipping request, synthesis failed", "request_id", req.ID, "error", err)
		} else {
			e.logger.Error("playback failed", "request_id", req.ID, "error", err)
		}
	}
}

func (e *Engine) play(ctx context.Context, req speech.Request) error {
	audio, err := e.synthesize(ctx, req.Text, req.Voice)
	if err != nil {
		return err
	}

	e.logger.Debug("synthesis complete", "request_id", req.ID, "bytes", len(audio))
	return e.out.Play(ctx, audio)
}

func (e *Engine) playPreview(job *previewJob) {
	e.logger.Info("playing voice preview", "voice", job.voice)

	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()

	err := e.out.Play(ctx, job.audio)
	if err != nil {
		e.logger.Error("preview playback failed", "voice", job.voice, "error", err)
	}
	job.done <- err
}

// synthesize bounds the synthesizer call by SynthesisTimeout, even for a
// synthesizer that ignores its context, and reports every failure as a
// *speech.SynthesisError.
func (e *Engine) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if e.cfg.SynthesisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SynthesisTimeout)
		defer cancel()
	}

	type result struct {
		audio []byte
		err   error
	}
	resultCh := make(chan result, 1)
	go func() {
		audio, err := e.synth.Synthesize(ctx, text, voice)
		resultCh <- result{audio, err}
	}()

	var audio []byte
	var err error
	select {
	case r := <-resultCh:
		audio, err = r.audio, r.err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.Join(speech.ErrSynthesisTimeout, err)
		}
		return nil, &speech.SynthesisError{Text: text, Voice: voice, Err: err}
	}
	if len(audio) == 0 {
		return nil, &speech.SynthesisError{Text: text, Voice: voice, Err: ErrEmptyAudio}
	}
	return audio, nil
}
