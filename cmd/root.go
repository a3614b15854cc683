package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "acto",
	Short: "Acto: change impact analysis for database objects",
	Long: `Acto reads the dependencies between tables, views and routines of a
database and tells you what a proposed change would break before you make it.

Every affected object is scored against a versioned risk policy, and changes
at High or Critical impact are flagged for approval.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.acto/acto.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
}

// loadConfig reads --config, or the default file when it exists. Without
// either, the built-in defaults are used.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.ExpandHome(config.DefaultPath)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// cliLogger logs to stderr so command output on stdout stays parseable.
func cliLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(os.Stderr, level)
}
