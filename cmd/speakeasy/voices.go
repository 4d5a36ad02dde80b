package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices the hub can synthesize",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		voices, err := hubClient().Voices(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tENGINE")
		for _, v := range voices {
			fmt.Fprintf(w, "%s\t%s\t%s\n", v.ID, v.Label, v.Engine)
		}
		return w.Flush()
	},
}
