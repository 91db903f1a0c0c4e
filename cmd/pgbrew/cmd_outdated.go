package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOutdatedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "outdated <recipe>",
		Short: "Check whether upstream has released a newer version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.orch.Outdated(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Outdated {
				fmt.Fprintf(out, "%s %s < %s\n", result.Recipe, result.Current, result.Latest)
				return nil
			}
			fmt.Fprintf(out, "%s %s is up to date\n", result.Recipe, result.Current)
			return nil
		},
	}
}
