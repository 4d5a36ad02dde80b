package playback

import (
	"context"
	"log/slog"
)

// LogOutput discards audio after logging it. It stands in for a real device
// on headless hosts.
type LogOutput struct {
	Logger *slog.Logger
}

// Play logs the audio size and returns immediately.
func (o LogOutput) Play(ctx context.Context, audio []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.Logger.Info("audio ready", "bytes", len(audio))
	return nil
}

// Name returns the output name.
func (o LogOutput) Name() string { return "log" }
