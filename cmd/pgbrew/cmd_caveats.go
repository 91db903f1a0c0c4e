package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCaveatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "caveats <recipe>",
		Short: "Print post-install notes for a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.orch.Caveats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
