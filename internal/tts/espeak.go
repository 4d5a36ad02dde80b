package tts

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrEspeakNotFound is returned when the espeak-ng binary is not found.
var ErrEspeakNotFound = errors.New("espeak-ng binary not found")

// EspeakConfig holds configuration for the espeak-ng engine.
type EspeakConfig struct {
	// BinaryPath is the path to the espeak-ng executable.
	BinaryPath string
	// DefaultVoice is used when a request carries no voice.
	DefaultVoice string
}

// EspeakEngine synthesizes WAV audio by running espeak-ng locally.
type EspeakEngine struct {
	config EspeakConfig
	logger *slog.Logger
}

// NewEspeakEngine creates a new espeak-ng engine.
func NewEspeakEngine(cfg EspeakConfig, logger *slog.Logger) (*EspeakEngine, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "espeak-ng"
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = "en-us"
	}

	if _, err := exec.LookPath(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEspeakNotFound, cfg.BinaryPath)
	}

	return &EspeakEngine{config: cfg, logger: logger}, nil
}

// Name returns the engine identifier.
func (e *EspeakEngine) Name() string {
	return "espeak"
}

// Synthesize runs espeak-ng with the text on stdin and returns its WAV output.
func (e *EspeakEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	voice := req.Voice
	if voice == "" {
		voice = e.config.DefaultVoice
	}

	e.logger.Debug("running espeak-ng", "voice", voice, "text_length", len(req.Text))

	cmd := exec.CommandContext(ctx, e.config.BinaryPath, "-v", voice, "--stdout", "--stdin")
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("espeak-ng failed", "error", err, "stderr", stderr.String())
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: no audio output", ErrSynthesisFailed)
	}

	return &AudioResult{Data: stdout.Bytes(), ContentType: "audio/wav"}, nil
}

// Voices lists the installed espeak-ng voices.
func (e *EspeakEngine) Voices(ctx context.Context) ([]Voice, error) {
	out, err := exec.CommandContext(ctx, e.config.BinaryPath, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("listing espeak-ng voices: %w", err)
	}
	return parseEspeakVoices(out), nil
}

// parseEspeakVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		lang, name := fields[1], fields[3]
		voices = append(voices, Voice{
			ID:     lang,
			Label:  lang + " - " + strings.ReplaceAll(name, "_", " "),
			Engine: "espeak",
		})
	}
	return voices
}
