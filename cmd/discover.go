package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/discovery"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/lock"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
)

var (
	discoverProject int64
	discoverOutput  string
	discoverSQL     string
	discoverFrom    string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover object dependencies from the source database",
	Long: `Connect to the source database, read the catalog and write a dependency
snapshot of its tables, views and routines.

With --sql, also write a script that loads the snapshot into the
entity_dependencies table used by the postgres repository. --from reuses an
existing snapshot instead of connecting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := cliLogger(cfg)

		outputPath := discoverOutput
		if outputPath == "" {
			outputPath = cfg.Repository.SnapshotPath
		}
		if outputPath == "" {
			outputPath = filepath.Join("output", "snapshot.yaml")
		}

		var snap *schema.Snapshot
		if discoverFrom != "" {
			if snap, err = schema.LoadYAML(discoverFrom); err != nil {
				return err
			}
		} else {
			l, err := lock.Acquire(lock.DefaultPath)
			if err != nil {
				return err
			}
			defer l.Release()

			d, err := discovery.New(&cfg.Source, discoverProject)
			if err != nil {
				return fmt.Errorf("initializing discoverer: %w", err)
			}
			defer d.Close()

			ctx := cmd.Context()
			logger.Info("connecting to source", "type", cfg.Source.Type, "host", cfg.Source.Host, "database", cfg.Source.Database)
			if err := d.Connect(ctx); err != nil {
				return fmt.Errorf("connecting to source: %w", err)
			}

			logger.Info("discovering dependencies")
			snap, err = d.Discover(ctx)
			if err != nil {
				return fmt.Errorf("discovering dependencies: %w", err)
			}

			if err := snap.WriteYAML(outputPath); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s\n", outputPath)
		}

		fmt.Fprintln(cmd.OutOrStdout(), snap.Summary())

		if discoverSQL != "" {
			sg := &discovery.ScriptGenerator{Snapshot: snap}
			if err := os.MkdirAll(filepath.Dir(discoverSQL), 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			if err := os.WriteFile(discoverSQL, []byte(sg.GenerateScript()), 0o644); err != nil {
				return fmt.Errorf("writing script: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loader script written to %s\n", discoverSQL)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().Int64Var(&discoverProject, "project", 1, "project id stamped onto the snapshot")
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", "", "snapshot path (default: repository.snapshot_path)")
	discoverCmd.Flags().StringVar(&discoverSQL, "sql", "", "also write an entity_dependencies loader script to this path")
	discoverCmd.Flags().StringVar(&discoverFrom, "from", "", "read an existing snapshot instead of connecting")
	rootCmd.AddCommand(discoverCmd)
}
