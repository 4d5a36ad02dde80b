package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/speakeasy/internal/listener"
	"github.com/dgnsrekt/speakeasy/internal/logging"
	"github.com/dgnsrekt/speakeasy/internal/remote"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	envFile  string
	hubURL   string
	voice    string
	output   string
	logLevel string

	cfg    *listener.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:          "speakeasy",
		Short:        "Listen to a speakeasy hub and speak what it sends",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}
)

func init() {
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&hubURL, "hub", "", "hub URL (overrides HUB_URL)")
	rootCmd.PersistentFlags().StringVarP(&voice, "voice", "v", "", "voice ID (overrides VOICE)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "", "audio output: speaker, discord or log (overrides OUTPUT)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(listenCmd, sayCmd, voicesCmd, exportCmd, statusCmd)
}

// loadConfig reads the dotenv file, the environment and the flags, in that
// order of increasing precedence.
func loadConfig(cmd *cobra.Command) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", envFile, err)
	}

	c, err := listener.ParseConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("hub") {
		c.HubURL = hubURL
	}
	if flags.Changed("voice") {
		c.Voice = voice
	}
	if flags.Changed("output") {
		c.Output = output
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	return nil
}

// hubClient returns a client for one-shot commands.
func hubClient() *remote.Client {
	return remote.NewClient(cfg.HubURL, cfg.HubBearerToken, max(cfg.SynthesisTimeout, 10*time.Second), logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
