package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export TEXT...",
	Short: "Synthesize text through the hub and save the audio to a file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		data, err := hubClient().Synthesize(cmd.Context(), text, cfg.Voice)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportPath, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", exportPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), exportPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "speech.wav", "destination file")
}
