// Package discord plays utterances into a Discord voice channel.
package discord

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dgnsrekt/speakeasy/internal/audio"
	"layeh.com/gopus"
)

const (
	// voiceConnectTimeout is the maximum time to wait for voice connection readiness.
	voiceConnectTimeout = 10 * time.Second
	// voiceConnectPollInterval is the polling interval while waiting for connection.
	voiceConnectPollInterval = 100 * time.Millisecond
	// frameDuration is the duration of one Discord audio frame (20ms).
	frameDuration = 20 * time.Millisecond
	// maxOpusDataBytes is the maximum size of an encoded Opus frame.
	maxOpusDataBytes = 4000
)

var (
	// ErrNotConnected is returned when trying to send audio while not connected.
	ErrNotConnected = errors.New("not connected to voice channel")
	// ErrConnectionFailed is returned when voice connection fails.
	ErrConnectionFailed = errors.New("failed to connect to voice channel")
	// ErrMissingCredentials is returned when token, guild or channel is empty.
	ErrMissingCredentials = errors.New("discord token, guild and voice channel are required")
)

// decoder turns synthesized audio into 48kHz stereo PCM.
type decoder interface {
	Decode(ctx context.Context, data []byte) ([]byte, error)
}

// VoiceConfig identifies the bot and the channel it speaks in.
type VoiceConfig struct {
	Token     string
	GuildID   string
	ChannelID string
}

// VoiceManager owns one Discord session and joins the configured voice
// channel lazily, on the first utterance.
type VoiceManager struct {
	mu              sync.Mutex
	session         *discordgo.Session
	voiceConnection *discordgo.VoiceConnection
	guildID         string
	channelID       string
	logger          *slog.Logger
	connected       bool
	opusEncoder     *gopus.Encoder
	conv            decoder
}

// NewVoiceManager creates a new voice manager.
func NewVoiceManager(cfg VoiceConfig, conv decoder, logger *slog.Logger) (*VoiceManager, error) {
	if cfg.Token == "" || cfg.GuildID == "" || cfg.ChannelID == "" {
		return nil, ErrMissingCredentials
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	encoder, err := gopus.NewEncoder(audio.SampleRate, audio.Channels, gopus.Voip)
	if err != nil {
		return nil, err
	}

	return &VoiceManager{
		session:     session,
		guildID:     cfg.GuildID,
		channelID:   cfg.ChannelID,
		logger:      logger,
		opusEncoder: encoder,
		conv:        conv,
	}, nil
}

// Name identifies the output in logs.
func (vm *VoiceManager) Name() string { return "discord" }

// Open opens the Discord session.
func (vm *VoiceManager) Open() error {
	return vm.session.Open()
}

// Close closes the Discord session and voice connection.
func (vm *VoiceManager) Close() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.voiceConnection != nil {
		vm.voiceConnection.Disconnect()
		vm.voiceConnection = nil
	}
	vm.connected = false

	return vm.session.Close()
}

// Play decodes data, joins the voice channel if needed and streams the
// utterance, returning once the last frame has been sent.
func (vm *VoiceManager) Play(ctx context.Context, data []byte) error {
	pcm, err := vm.conv.Decode(ctx, data)
	if err != nil {
		return err
	}

	if !vm.IsConnected() {
		if err := vm.Connect(ctx); err != nil {
			return errors.Join(ErrConnectionFailed, err)
		}
	}

	return vm.SendAudio(ctx, pcm)
}

// Connect joins the configured voice channel.
func (vm *VoiceManager) Connect(ctx context.Context) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.connected && vm.voiceConnection != nil {
		return nil
	}

	vm.logger.Info("connecting to voice channel", "guild_id", vm.guildID, "channel_id", vm.channelID)

	// mute=false, deaf=true: the bot only speaks.
	vc, err := vm.session.ChannelVoiceJoin(vm.guildID, vm.channelID, false, true)
	if err != nil {
		return err
	}

	// discordgo's Ready is a bool, so poll with a deadline.
	deadline := time.Now().Add(voiceConnectTimeout)
	for {
		if ctx.Err() != nil {
			vc.Disconnect()
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			vc.Disconnect()
			return ErrConnectionFailed
		}
		if vc.Ready {
			break
		}
		time.Sleep(voiceConnectPollInterval)
	}

	vm.voiceConnection = vc
	vm.connected = true
	vm.logger.Info("connected to voice channel")

	return nil
}

// Disconnect leaves the voice channel.
func (vm *VoiceManager) Disconnect() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.voiceConnection == nil {
		return nil
	}

	vm.logger.Info("disconnecting from voice channel")
	err := vm.voiceConnection.Disconnect()
	vm.voiceConnection = nil
	vm.connected = false

	return err
}

// IsConnected returns whether the bot is connected to voice.
func (vm *VoiceManager) IsConnected() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.connected && vm.voiceConnection != nil
}

// SendAudio streams 48kHz stereo 16-bit PCM to the voice channel in real time.
func (vm *VoiceManager) SendAudio(ctx context.Context, pcmData []byte) error {
	vm.mu.Lock()
	vc := vm.voiceConnection
	connected := vm.connected
	vm.mu.Unlock()

	if !connected || vc == nil {
		return ErrNotConnected
	}

	frameReader := audio.NewPCMFrameReader(pcmData)

	if err := vc.Speaking(true); err != nil {
		vm.logger.Error("failed to set speaking state", "error", err)
	}
	defer func() {
		if err := vc.Speaking(false); err != nil {
			vm.logger.Error("failed to clear speaking state", "error", err)
		}
	}()

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frame, err := frameReader.ReadFrame()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			opusData, err := vm.encodeOpus(frame)
			if err != nil {
				vm.logger.Error("opus encoding failed", "error", err)
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case vc.OpusSend <- opusData:
			}
		}
	}
}

// encodeOpus converts one 20ms PCM frame to Opus.
func (vm *VoiceManager) encodeOpus(pcm []byte) ([]byte, error) {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return vm.opusEncoder.Encode(samples, audio.FrameSize, maxOpusDataBytes)
}
