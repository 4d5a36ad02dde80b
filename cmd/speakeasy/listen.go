package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/speakeasy/internal/audio"
	"github.com/dgnsrekt/speakeasy/internal/console"
	"github.com/dgnsrekt/speakeasy/internal/discord"
	"github.com/dgnsrekt/speakeasy/internal/listener"
	"github.com/dgnsrekt/speakeasy/internal/playback"
	"github.com/dgnsrekt/speakeasy/internal/speech"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Subscribe to the hub and play every message in order",
	Args:  cobra.NoArgs,
	RunE:  runListen,
}

func runListen(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	client := listener.New(cfg, out, logger)
	ui := console.New(client, os.Stdout)

	if vm, ok := out.(*discord.VoiceManager); ok {
		client.OnIdle(func() {
			logger.Info("playback idle, disconnecting from voice channel")
			if err := vm.Disconnect(); err != nil {
				logger.Error("failed to disconnect from voice", "error", err)
			}
		})
	}

	client.OnPauseStateChanged(func(paused bool) {
		if paused {
			ui.Printf("** paused **")
		} else {
			ui.Printf("** resumed **")
		}
	})
	client.OnQueueChanged(queuePrinter(ui))
	client.OnPlayback(func(req speech.Request, playing bool) {
		if playing {
			ui.Printf("> %s", req.Text)
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	if err := ui.Run(ctx, os.Stdin); err != nil {
		logger.Warn("console input failed", "error", err)
	}
	cancel()
	return <-done
}

// queuePrinter prints pause-queue snapshots only when their contents change,
// since the poller republishes unchanged snapshots.
func queuePrinter(ui *console.Console) func([]speech.Request) {
	var mu sync.Mutex
	last := ""
	return func(reqs []speech.Request) {
		ids := make([]string, len(reqs))
		for i, r := range reqs {
			ids[i] = r.ID
		}
		key := strings.Join(ids, ",")

		mu.Lock()
		changed := key != last
		last = key
		mu.Unlock()

		if changed {
			ui.PrintQueue(reqs)
		}
	}
}

// openOutput builds the configured audio output and its cleanup.
func openOutput() (playback.Output, func(), error) {
	noop := func() {}

	switch cfg.Output {
	case listener.OutputLog:
		return playback.LogOutput{Logger: logger}, noop, nil

	case listener.OutputSpeaker:
		conv, err := audio.NewConverter(cfg.FFmpegPath)
		if err != nil {
			return nil, nil, fmt.Errorf("speaker output needs ffmpeg: %w", err)
		}
		speaker, err := audio.NewSpeaker(conv, logger)
		if err != nil {
			return nil, nil, err
		}
		return speaker, noop, nil

	case listener.OutputDiscord:
		conv, err := audio.NewConverter(cfg.FFmpegPath)
		if err != nil {
			return nil, nil, fmt.Errorf("discord output needs ffmpeg: %w", err)
		}
		vm, err := discord.NewVoiceManager(discord.VoiceConfig{
			Token:     cfg.DiscordToken,
			GuildID:   cfg.GuildID,
			ChannelID: cfg.VoiceChannelID,
		}, conv, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := vm.Open(); err != nil {
			return nil, nil, fmt.Errorf("opening Discord session: %w", err)
		}
		logger.Info("Discord session opened")
		return vm, func() {
			if err := vm.Close(); err != nil {
				logger.Error("failed to close Discord session", "error", err)
			}
		}, nil
	}

	return nil, nil, fmt.Errorf("unknown output %q", cfg.Output)
}
