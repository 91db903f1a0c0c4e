package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <recipe>",
		Short: "Show which pg_config a build would use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, res, err := a.orch.ResolveRecipe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Found {
				fmt.Fprintf(out, "%s: not found\n", def.Postgres.ConfigTool)
			} else {
				fmt.Fprintf(out, "%s: %s\n", def.Postgres.ConfigTool, res.Path)
			}
			fmt.Fprintf(out, "tier: %s\n", res.Tier)
			fmt.Fprintf(out, "formula: %s\n", res.Formula(def.Postgres.DefaultFormula()))
			fmt.Fprintf(out, "build dependencies: %s\n", strings.Join(def.EffectiveBuildDependencies(res), ", "))
			return nil
		},
	}
}
