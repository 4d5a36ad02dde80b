// Package config loads the hub's settings from the environment.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all hub configuration.
type Config struct {
	// HTTP settings
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"3001"`
	BearerToken string `env:"BEARER_TOKEN"`

	// TTS settings
	EspeakPath              string `env:"ESPEAK_PATH" envDefault:"espeak-ng"`
	DefaultVoice            string `env:"DEFAULT_VOICE" envDefault:"en-us"`
	ElevenAPIKey            string `env:"ELEVEN_API_KEY"`
	ElevenModel             string `env:"ELEVEN_MODEL" envDefault:"eleven_multilingual_v2"`
	ElevenRequestsPerMinute int    `env:"ELEVEN_REQUESTS_PER_MINUTE" envDefault:"60"`

	// Behavior settings
	MaxTextLength   int `env:"MAX_TEXT_LENGTH" envDefault:"1000"`
	BacklogCapacity int `env:"BACKLOG_CAPACITY" envDefault:"100"`
	HistorySize     int `env:"HISTORY_SIZE" envDefault:"10"`

	// Logging settings
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AuthDisabled returns true if bearer token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.BearerToken == ""
}

// ElevenEnabled reports whether ElevenLabs voices are available.
func (c *Config) ElevenEnabled() bool {
	return c.ElevenAPIKey != ""
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return errors.New("HTTP_PORT must be between 1 and 65535")
	}

	if c.MaxTextLength < 1 {
		return errors.New("MAX_TEXT_LENGTH must be at least 1")
	}

	if c.BacklogCapacity < 1 {
		return errors.New("BACKLOG_CAPACITY must be at least 1")
	}

	if c.HistorySize < 1 {
		return errors.New("HISTORY_SIZE must be at least 1")
	}

	if c.ElevenRequestsPerMinute < 0 {
		return errors.New("ELEVEN_REQUESTS_PER_MINUTE must be non-negative")
	}

	if c.EspeakPath == "" {
		return errors.New("ESPEAK_PATH must not be empty")
	}

	return ValidateLogging(c.LogLevel, c.LogFormat)
}

// ValidateLogging checks LOG_LEVEL and LOG_FORMAT values.
func ValidateLogging(level, format string) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[level] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[format] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}
