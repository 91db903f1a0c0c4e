package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ochairo/pgbrew/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/pgbrew/internal/domain-orchestrators"
	"github.com/ochairo/pgbrew/internal/domain/interfaces"
	"github.com/ochairo/pgbrew/internal/domain/services"
)

func newInstallCmd(a *app) *cobra.Command {
	var req orchestrators.InstallRequest

	cmd := &cobra.Command{
		Use:   "install <recipe>",
		Short: "Build a recipe, stage it into the cellar and write its installer",
		Long: `Install resolves pg_config, builds the extension with CMake and make,
stages the control file, SQL scripts and shared library into the keg and
writes <keg>/bin/<installer>. Run the installer afterwards to copy the
extension into the PostgreSQL installation.`,
		Example: `  pgbrew install lantern
  pgbrew install lantern --source-dir ./lantern --bottle
  pgbrew install ./recipes/lantern.yml --version 0.5.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Recipe = args[0]
			result, err := a.orch.Install(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.GetInstallSummary())

			caveats, err := services.RenderCaveats(result.Recipe, result.Resolution)
			if err != nil {
				a.logger.Warn("Failed to render caveats", interfaces.Err(err))
				return nil
			}
			fmt.Fprintf(out, "\n==> Caveats\n%s", caveats)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.SourceDir, "source-dir", "", "Use an unpacked source tree instead of downloading")
	cmd.Flags().StringVar(&req.Version, "version", "", "Override the recipe version")
	cmd.Flags().BoolVar(&req.Bottle, "bottle", false, "Package the keg into a tar.gz with a .sha256 sidecar")
	cmd.Flags().StringVar(&req.Platform, "platform", gateways.Platform(), "Platform suffix of the bottle")
	return cmd
}
