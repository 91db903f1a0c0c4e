package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is searched for in the working directory and $HOME/.pgbrew
const DefaultConfigFileName = "pgbrew"

// Config is the resolved CLI configuration
type Config struct {
	RecipesDir     string        `mapstructure:"recipes_dir"`
	Cellar         string        `mapstructure:"cellar"`
	WorkDir        string        `mapstructure:"work_dir"`
	OutputDir      string        `mapstructure:"output_dir"`
	HomebrewPrefix string        `mapstructure:"homebrew_prefix"`
	GitHub         GitHubConfig  `mapstructure:"github"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

// GitHubConfig configures the upstream release check
type GitHubConfig struct {
	APIURL string `mapstructure:"api_url"`
	Token  string `mapstructure:"token"`
}

// LoggingConfig selects the log level and encoding
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration with the following priority:
// 1. Command line flags (highest priority)
// 2. Environment variables (PGBREW_*)
// 3. Config file
// 4. Defaults (lowest priority)
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pgbrew"))
		}
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix("PGBREW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("homebrew_prefix", "PGBREW_HOMEBREW_PREFIX", "HOMEBREW_PREFIX")
	_ = v.BindEnv("github.token", "PGBREW_GITHUB_TOKEN", "GITHUB_TOKEN")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Cellar == "" {
		config.Cellar = filepath.Join(config.HomebrewPrefix, "Cellar")
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("recipes_dir", "recipes")
	v.SetDefault("work_dir", filepath.Join(os.TempDir(), "pgbrew"))
	v.SetDefault("output_dir", "dist")
	v.SetDefault("homebrew_prefix", defaultHomebrewPrefix())
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// defaultHomebrewPrefix mirrors Homebrew's default install locations
func defaultHomebrewPrefix() string {
	switch {
	case runtime.GOOS == "darwin" && runtime.GOARCH == "arm64":
		return "/opt/homebrew"
	case runtime.GOOS == "linux":
		return "/home/linuxbrew/.linuxbrew"
	default:
		return "/usr/local"
	}
}
