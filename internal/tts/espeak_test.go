package tts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"testing"

	"github.com/dgnsrekt/speakeasy/internal/wav"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEspeakEngine_BinaryNotFound(t *testing.T) {
	_, err := NewEspeakEngine(EspeakConfig{BinaryPath: "/nonexistent/espeak-ng"}, quietLogger())
	if !errors.Is(err, ErrEspeakNotFound) {
		t.Errorf("expected ErrEspeakNotFound, got %v", err)
	}
}

func TestEspeakEngine_Name(t *testing.T) {
	engine := &EspeakEngine{}
	if engine.Name() != "espeak" {
		t.Errorf("expected name 'espeak', got '%s'", engine.Name())
	}
}

func TestEspeakEngine_Synthesize_EmptyText(t *testing.T) {
	engine := &EspeakEngine{config: EspeakConfig{BinaryPath: "espeak-ng"}, logger: quietLogger()}

	_, err := engine.Synthesize(context.Background(), SynthesizeRequest{Text: "  "})
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestEspeakEngine_Synthesize(t *testing.T) {
	if _, err := exec.LookPath("espeak-ng"); err != nil {
		t.Skip("espeak-ng binary not available")
	}

	engine, err := NewEspeakEngine(EspeakConfig{}, quietLogger())
	if err != nil {
		t.Fatalf("NewEspeakEngine() error = %v", err)
	}

	result, err := engine.Synthesize(context.Background(), SynthesizeRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if result.ContentType != "audio/wav" {
		t.Errorf("expected audio/wav, got %s", result.ContentType)
	}
	if !wav.IsWAV(result.Data) {
		t.Error("expected WAV output")
	}
}

func TestParseEspeakVoices(t *testing.T) {
	out := []byte(`Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
 2  broken
`)

	voices := parseEspeakVoices(out)
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d: %+v", len(voices), voices)
	}
	if voices[0].ID != "af" || voices[0].Label != "af - Afrikaans" {
		t.Errorf("unexpected first voice %+v", voices[0])
	}
	if voices[1].ID != "en-us" || voices[1].Label != "en-us - English (America)" {
		t.Errorf("unexpected second voice %+v", voices[1])
	}
	if voices[1].Engine != "espeak" {
		t.Errorf("expected engine 'espeak', got %q", voices[1].Engine)
	}
}
