package audio

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often a running playback is checked for completion.
const pollInterval = 10 * time.Millisecond

// Speaker plays audio on the local output device through oto. Only one oto
// context may exist per process, so a Speaker is created once at startup.
type Speaker struct {
	ctx    *oto.Context
	conv   *Converter
	logger *slog.Logger
}

// NewSpeaker opens the system audio device.
func NewSpeaker(conv *Converter, logger *slog.Logger) (*Speaker, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	logger.Debug("audio device ready", "sample_rate", SampleRate, "channels", Channels)
	return &Speaker{ctx: ctx, conv: conv, logger: logger}, nil
}

// Play decodes data and blocks until it has been played to the end, the
// device reports an error, or ctx is cancelled.
func (s *Speaker) Play(ctx context.Context, data []byte) error {
	pcm, err := s.conv.Decode(ctx, data)
	if err != nil {
		return err
	}

	player := s.ctx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()

	player.Play()
	s.logger.Debug("speaker playing", "pcm_bytes", len(pcm))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return player.Err()
}

// Name identifies the output in logs.
func (s *Speaker) Name() string { return "speaker" }
