package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var sayCmd = &cobra.Command{
	Use:   "say TEXT...",
	Short: "Send text to the hub for every listener to speak",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if err := hubClient().Speak(cmd.Context(), text, cfg.Voice); err != nil {
			return err
		}
		logger.Info("sent to hub", "text_length", len(text))
		return nil
	},
}
