package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/source"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the Acto configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Source:\n")
		fmt.Fprintf(out, "    Type:           %s\n", cfg.Source.Type)
		fmt.Fprintf(out, "    Host:           %s\n", cfg.Source.Host)
		fmt.Fprintf(out, "    Port:           %d\n", cfg.Source.Port)
		fmt.Fprintf(out, "    Database:       %s\n", cfg.Source.Database)
		fmt.Fprintf(out, "    Schema:         %s\n", cfg.Source.Schema)
		fmt.Fprintf(out, "    Username:       %s\n", cfg.Source.Username)
		fmt.Fprintf(out, "    Password:       %s\n", maskSecret(cfg.Source.Password))
		fmt.Fprintf(out, "    Max Conns:      %d\n", cfg.Source.MaxConnections)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Repository:\n")
		fmt.Fprintf(out, "    Type:           %s\n", cfg.Repository.Type)
		if cfg.Repository.Type == config.RepositorySnapshot {
			fmt.Fprintf(out, "    Snapshot:       %s\n", cfg.Repository.SnapshotPath)
		}
		fmt.Fprintf(out, "    Cache:          %d entries, ttl %s\n", cfg.Repository.CacheSize, cfg.Repository.CacheTTL)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Analysis:\n")
		fmt.Fprintf(out, "    Max Depth:      %d\n", cfg.Analysis.MaxDepth)
		fmt.Fprintf(out, "    Max Paths:      %d\n", cfg.Analysis.MaxPaths)
		fmt.Fprintf(out, "    Parallelism:    %d\n", cfg.Analysis.Parallelism)
		fmt.Fprintf(out, "    Policy:         %s\n", cfg.Analysis.Policy.Version)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Audit:\n")
		if cfg.Audit.Enabled() {
			fmt.Fprintf(out, "    Connection:     %s\n", source.RedactURL(cfg.Audit.ConnectionString))
			fmt.Fprintf(out, "    Collection:     %s.%s\n", cfg.Audit.Database, cfg.Audit.Collection)
		} else {
			fmt.Fprintf(out, "    Connection:     (disabled)\n")
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Server port:      %d\n", cfg.Server.Port)
		fmt.Fprintf(out, "  Log level:        %s (%s)\n", cfg.Logging.Level, cfg.Logging.Directory)
		fmt.Fprintf(out, "  Tracing:          %s\n", cfg.Telemetry.Tracing)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		var problems []string
		switch cfg.Repository.Type {
		case config.RepositoryPostgres:
			if cfg.Source.Host == "" {
				problems = append(problems, "source.host is required for the postgres repository")
			}
			if cfg.Source.Database == "" {
				problems = append(problems, "source.database is required for the postgres repository")
			}
		case config.RepositorySnapshot:
			if cfg.Source.Type != "" && cfg.Source.Host == "" {
				problems = append(problems, "source.host is required to run discovery")
			}
		}
		if cfg.Audit.Enabled() && !strings.HasPrefix(cfg.Audit.ConnectionString, "mongodb") {
			problems = append(problems, "audit.connection_string must be a mongodb:// or mongodb+srv:// URI")
		}

		if len(problems) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Validation errors:")
			for _, p := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", p)
			}
			return fmt.Errorf("%d validation error(s)", len(problems))
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
