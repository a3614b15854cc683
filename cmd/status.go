package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/lock"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/report"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/state"
)

var (
	statusLimit   int
	statusHistory string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the dependency snapshot and recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Repository: %s\n", cfg.Repository.Type)
		if cfg.Repository.Type == "snapshot" {
			snap, err := schema.LoadYAML(cfg.Repository.SnapshotPath)
			if err != nil {
				fmt.Fprintf(out, "Snapshot:   not available (%v)\n", err)
			} else {
				fmt.Fprintf(out, "Snapshot:   %s (project %d, discovered %s)\n",
					cfg.Repository.SnapshotPath, snap.ProjectID, snap.DiscoveredAt.Local().Format("2006-01-02 15:04"))
				fmt.Fprintln(out, snap.Summary())
			}
		} else {
			fmt.Fprintf(out, "Source:     %s (%s:%d/%s)\n", cfg.Source.Type, cfg.Source.Host, cfg.Source.Port, cfg.Source.Database)
		}
		if held, pid, err := lock.IsHeld(lock.DefaultPath); err == nil && held {
			fmt.Fprintf(out, "Discovery:  running (PID %d)\n", pid)
		}
		fmt.Fprintf(out, "Policy:     %s\n\n", cfg.Analysis.Policy.Version)

		h, err := state.Load(statusHistory)
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}
		fmt.Fprintf(out, "Analyses:   %d recorded, %d required approval\n\n", len(h.Entries), h.PendingApprovals())
		fmt.Fprint(out, report.History(h.Recent(statusLimit)))
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "number of recent analyses to show")
	statusCmd.Flags().StringVar(&statusHistory, "history", "", "history file (default: ~/.acto/history.yaml)")
	rootCmd.AddCommand(statusCmd)
}
