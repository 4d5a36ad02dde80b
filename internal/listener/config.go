package listener

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dgnsrekt/speakeasy/internal/config"
)

// Output names accepted by OUTPUT.
const (
	OutputSpeaker = "speaker"
	OutputDiscord = "discord"
	OutputLog     = "log"
)

// Config holds all listening client configuration.
type Config struct {
	// Hub settings
	HubURL         string `env:"HUB_URL" envDefault:"http://localhost:3001"`
	HubBearerToken string `env:"HUB_BEARER_TOKEN"`

	// Speech settings
	Voice            string        `env:"VOICE" envDefault:"en-us"`
	Output           string        `env:"OUTPUT" envDefault:"speaker"`
	SynthesisTimeout time.Duration `env:"SYNTHESIS_TIMEOUT" envDefault:"30s"`

	// Behavior settings
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	MaxPending       int           `env:"MAX_PENDING" envDefault:"100"`
	PlaybackCapacity int           `env:"PLAYBACK_CAPACITY" envDefault:"100"`
	AutoLeaveIdle    time.Duration `env:"AUTO_LEAVE_IDLE" envDefault:"5m"`

	// Audio settings
	FFmpegPath string `env:"FFMPEG_PATH"`

	// Discord settings, required when OUTPUT=discord
	DiscordToken   string `env:"DISCORD_TOKEN"`
	GuildID        string `env:"GUILD_ID"`
	VoiceChannelID string `env:"VOICE_CHANNEL_ID"`

	// Logging settings
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads configuration from environment variables with sane
// defaults.
func LoadConfig() (*Config, error) {
	cfg, err := ParseConfig()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseConfig reads the environment without validating, so callers can apply
// overrides first.
func ParseConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	u, err := url.Parse(c.HubURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("HUB_URL must be an http or https URL")
	}

	switch c.Output {
	case OutputSpeaker, OutputLog:
	case OutputDiscord:
		if c.DiscordToken == "" || c.GuildID == "" || c.VoiceChannelID == "" {
			return errors.New("OUTPUT=discord requires DISCORD_TOKEN, GUILD_ID and VOICE_CHANNEL_ID")
		}
	default:
		return errors.New("OUTPUT must be one of: speaker, discord, log")
	}

	if c.SynthesisTimeout <= 0 {
		return errors.New("SYNTHESIS_TIMEOUT must be positive")
	}

	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}

	if c.MaxPending < 1 {
		return errors.New("MAX_PENDING must be at least 1")
	}

	if c.PlaybackCapacity < 1 {
		return errors.New("PLAYBACK_CAPACITY must be at least 1")
	}

	if c.PlaybackCapacity < c.MaxPending {
		return errors.New("PLAYBACK_CAPACITY must be at least MAX_PENDING")
	}

	if c.AutoLeaveIdle < 0 {
		return errors.New("AUTO_LEAVE_IDLE must be non-negative")
	}

	return config.ValidateLogging(c.LogLevel, c.LogFormat)
}
