// Package cliconfig loads the thin configuration surface the CLI front
// end needs: the default extract output directory and the logger's
// level and format. The core library packages have no configuration
// surface of their own.
package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/viper"
)

// Config is the CLI's layered configuration: defaults, overridden by an
// optional config file, overridden by environment variables and flags.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Output OutputConfig `mapstructure:"output"`
}

// LogConfig controls the zap logger built by internal/cli.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig controls where commands without an explicit --output
// write their results.
type OutputConfig struct {
	ExtractDir string `mapstructure:"extract_dir"`
}

// DefaultConfig returns the configuration used when no config file,
// environment variable, or flag overrides a setting.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Output: OutputConfig{
			ExtractDir: "./extracted",
		},
	}
}

// Validate checks that the configuration's values are within the
// allowed sets.
func (c *Config) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console'")
	}
	if c.Output.ExtractDir == "" {
		return fmt.Errorf("output.extract_dir cannot be empty")
	}
	return nil
}

// Load reads configuration from an optional lgx.yaml/lgx.json config
// file (searched for by viper's active configuration), environment
// variables prefixed LGX_, and any flags already bound to viper by the
// caller, layered over DefaultConfig.
func Load() (*Config, error) {
	defaults := DefaultConfig()

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.format", defaults.Log.Format)
	viper.SetDefault("output.extract_dir", defaults.Output.ExtractDir)

	viper.SetEnvPrefix("LGX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
