package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := a.repo.ListRecipes(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing recipes: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Available recipes (%d total):\n\n", len(defs))
			for _, def := range defs {
				fmt.Fprintf(out, "  %-20s %s\n", def.Name, def.Description)
				fmt.Fprintf(out, "  %-20s Version: %s\n", "", def.Version)
				fmt.Fprintf(out, "  %-20s PostgreSQL: %s@%v\n", "", def.Postgres.Formula, def.Postgres.Candidates)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
