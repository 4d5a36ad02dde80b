package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the hub's pause flag, undelivered backlog and history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		hub := hubClient()
		out := cmd.OutOrStdout()

		paused, err := hub.Paused(ctx)
		if err != nil {
			return err
		}
		backlog, err := hub.Backlog(ctx, cfg.Voice)
		if err != nil {
			return err
		}
		history, err := hub.History(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "hub:     %s\n", hub.BaseURL())
		fmt.Fprintf(out, "paused:  %v\n", paused)
		fmt.Fprintf(out, "backlog: %d\n", len(backlog))
		for i, req := range backlog {
			fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, req.Text, req.Voice)
		}
		fmt.Fprintf(out, "history: %d\n", len(history))
		for _, text := range history {
			fmt.Fprintf(out, "  - %s\n", text)
		}
		return nil
	},
}
