package tts

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrEngineNotFound is returned when an engine is not registered.
	ErrEngineNotFound = errors.New("TTS engine not found")
	// ErrEngineExists is returned when trying to register a duplicate engine.
	ErrEngineExists = errors.New("TTS engine already registered")
)

// Registry manages available TTS engines. A voice written "name:id" is
// routed to the engine called name; any other voice goes to the default.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
	order   []string
	def     string
}

// NewRegistry creates a new TTS engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an engine. The first engine registered becomes the default.
func (r *Registry) Register(engine Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := engine.Name()
	if _, exists := r.engines[name]; exists {
		return ErrEngineExists
	}

	r.engines[name] = engine
	r.order = append(r.order, name)

	if r.def == "" {
		r.def = name
	}

	return nil
}

// Get retrieves an engine by name.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, exists := r.engines[name]
	if !exists {
		return nil, ErrEngineNotFound
	}

	return engine, nil
}

// Default returns the default engine.
func (r *Registry) Default() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == "" {
		return nil, ErrEngineNotFound
	}

	return r.engines[r.def], nil
}

// SetDefault sets the default engine by name.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; !exists {
		return ErrEngineNotFound
	}

	r.def = name
	return nil
}

// List returns registered engine names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Resolve picks the engine for voice and returns the voice with the engine
// prefix removed.
func (r *Registry) Resolve(voice string) (Engine, string, error) {
	if name, rest, ok := strings.Cut(voice, ":"); ok {
		if engine, err := r.Get(name); err == nil {
			return engine, rest, nil
		}
	}

	engine, err := r.Default()
	if err != nil {
		return nil, "", err
	}
	return engine, voice, nil
}

// Synthesize resolves the voice and runs the matching engine.
func (r *Registry) Synthesize(ctx context.Context, text, voice string) (*AudioResult, error) {
	engine, name, err := r.Resolve(voice)
	if err != nil {
		return nil, err
	}
	return engine.Synthesize(ctx, SynthesizeRequest{Text: text, Voice: name})
}

// Voices collects the voices of every engine. An engine that fails to list
// is skipped; the joined error is returned alongside what was collected.
func (r *Registry) Voices(ctx context.Context) ([]Voice, error) {
	var (
		all  []Voice
		errs []error
	)
	for _, name := range r.List() {
		engine, err := r.Get(name)
		if err != nil {
			continue
		}
		voices, err := engine.Voices(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, voices...)
	}
	return all, errors.Join(errs...)
}
