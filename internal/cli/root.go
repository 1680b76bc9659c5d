// Package cli implements the lgx command-line front end: thin cobra
// commands that parse flags, call into pkgfile/verify, and format
// output. It has no interesting contracts of its own beyond that.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lgxpkg/lgx/internal/cliconfig"
	"github.com/lgxpkg/lgx/internal/logging"
)

var (
	cfgFile string
	logger  *zap.Logger
	cfg     *cliconfig.Config
)

// rootCmd is the base command when lgx is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lgx",
	Short: "Create, inspect, and extract LGX multi-variant packages",
	Long: `lgx builds, validates, and extracts LGX package files: a
gzip-compressed tar archive containing a JSON manifest and one
directory tree per build variant.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = cliconfig.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and runs it. It
// is called once by cmd/lgx/main.go.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default search: ./lgx.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("lgx")
		viper.SetConfigType("yaml")
	}
	_ = viper.ReadInConfig()
}
