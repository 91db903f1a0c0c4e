package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ochairo/pgbrew/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/pgbrew/internal/domain-orchestrators"
	"github.com/ochairo/pgbrew/internal/external-adapters/yaml"
	"github.com/ochairo/pgbrew/internal/external-adapters/zaplog"
)

// app holds everything a subcommand needs, built once the config is loaded
type app struct {
	config *Config
	logger *zaplog.Logger
	repo   *yaml.RecipeRepository
	orch   *orchestrators.InstallOrchestrator
}

func newApp(config *Config, logger *zaplog.Logger) *app {
	runner := gateways.NewCommandRunner(logger)
	repo := yaml.NewRecipeRepository(config.RecipesDir, logger)
	versions := gateways.NewReleaseChecker(config.GitHub.Token)
	if config.GitHub.APIURL != "" {
		versions.SetAPIBase(config.GitHub.APIURL)
	}

	orch := orchestrators.NewInstallOrchestrator(
		repo,
		orchestrators.InstallGateways{
			Env:         gateways.OSEnvironment{},
			FS:          gateways.NewOSFileSystem(),
			Fetcher:     gateways.NewDownloader(logger),
			Builder:     gateways.NewRecipeBuilder(runner),
			Stager:      gateways.NewStager(logger),
			Inspector:   gateways.NewLibraryInspector(),
			Installer:   gateways.NewInstallerGenerator(runner, logger),
			Packager:    gateways.NewPackager(),
			Checksummer: gateways.NewChecksummer(),
			SelfTester:  gateways.NewSelfTester(runner, logger),
			Versions:    versions,
		},
		orchestrators.InstallOrchestratorConfig{
			Cellar:         config.Cellar,
			WorkDir:        config.WorkDir,
			OutputDir:      config.OutputDir,
			HomebrewPrefix: config.HomebrewPrefix,
		},
		logger,
	)

	return &app{config: config, logger: logger, repo: repo, orch: orch}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var (
		cfgFile string
		a       app
	)

	rootCmd := &cobra.Command{
		Use:   "pgbrew",
		Short: "Build and install PostgreSQL extensions from recipes",
		Long: `pgbrew builds a PostgreSQL extension against the newest installed
PostgreSQL, stages it into a versioned keg and writes an installer script
that copies the extension into the server's library and share directories.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			config, err := LoadConfig(v, cfgFile)
			if err != nil {
				return err
			}
			logger, err := zaplog.New(zaplog.Config{Level: config.Logging.Level, Format: config.Logging.Format})
			if err != nil {
				return err
			}
			a = *newApp(config, logger)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./pgbrew.yaml or $HOME/.pgbrew/pgbrew.yaml)")
	flags.String("recipes-dir", "recipes", "Path to recipes directory")
	flags.String("cellar", "", "Keg root (default: <homebrew-prefix>/Cellar)")
	flags.String("work-dir", "", "Scratch directory for sources and test clusters")
	flags.String("output-dir", "dist", "Output directory for bottles")
	flags.String("homebrew-prefix", "", "Homebrew prefix holding opt/postgresql@<N> (default: $HOMEBREW_PREFIX)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")

	bindFlag(v, "recipes_dir", rootCmd, "recipes-dir")
	bindFlag(v, "cellar", rootCmd, "cellar")
	bindFlag(v, "work_dir", rootCmd, "work-dir")
	bindFlag(v, "output_dir", rootCmd, "output-dir")
	bindFlag(v, "homebrew_prefix", rootCmd, "homebrew-prefix")
	bindFlag(v, "logging.level", rootCmd, "log-level")
	bindFlag(v, "logging.format", rootCmd, "log-format")

	rootCmd.AddCommand(
		newInstallCmd(&a),
		newResolveCmd(&a),
		newSelfTestCmd(&a),
		newListCmd(&a),
		newCaveatsCmd(&a),
		newOutdatedCmd(&a),
	)
	return rootCmd
}

// bindFlag binds a persistent flag to a viper key. Flags left at their
// zero default do not override config file or environment values.
func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	_ = v.BindPFlag(key, cmd.PersistentFlags().Lookup(name))
}
