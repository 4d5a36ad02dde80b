// Package tts holds the hub's synthesis engines and routes voices to them.
package tts

import (
	"context"
	"errors"
)

var (
	// ErrSynthesisFailed is returned when an engine produced no audio.
	ErrSynthesisFailed = errors.New("TTS synthesis failed")
	// ErrEmptyText is returned for requests without text.
	ErrEmptyText = errors.New("empty text")
)

// SynthesizeRequest contains parameters for TTS synthesis. Voice has any
// engine prefix already stripped.
type SynthesizeRequest struct {
	Text  string
	Voice string
}

// AudioResult represents synthesized audio output.
type AudioResult struct {
	// Data contains the encoded audio bytes.
	Data []byte
	// ContentType is the MIME type served to clients (audio/wav, audio/mpeg).
	ContentType string
}

// Voice is one selectable voice. ID is what clients send back, including
// the engine prefix for non-default engines.
type Voice struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Engine string `json:"engine"`
}

// Engine is the interface for text-to-speech synthesis.
type Engine interface {
	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error)
	// Voices lists the voices the engine offers.
	Voices(ctx context.Context) ([]Voice, error)
	// Name returns the engine identifier, also used as voice prefix.
	Name() string
}
