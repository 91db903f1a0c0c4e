package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSelfTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test <recipe>",
		Short: "Create a throwaway cluster and run the recipe's test statement",
		Long: `Test initialises a temporary PostgreSQL cluster with pg_ctl from the
resolved installation, preloads the extension if the recipe asks for it,
runs the recipe's test statement and stops the cluster again. The
extension must already be installed into that PostgreSQL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.orch.SelfTest(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: test passed\n", args[0])
			return nil
		},
	}
}
