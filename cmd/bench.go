package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/benchmark"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
)

var (
	benchProject     int64
	benchType        string
	benchIDs         []int64
	benchChange      string
	benchIterations  int
	benchParallelism int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure analysis latency against the configured repository",
	Long: `Analyze a set of entities repeatedly and report throughput and latency
percentiles. Without --id, every entity of --type in the snapshot is used.

Results are not added to the analysis history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := cliLogger(cfg)

		entityType, err := impact.ParseEntityType(benchType)
		if err != nil {
			return fmt.Errorf("parsing --type: %w", err)
		}
		change, err := impact.ParseChangeType(benchChange)
		if err != nil {
			return fmt.Errorf("parsing --change: %w", err)
		}
		roots, err := benchRoots(cfg, entityType)
		if err != nil {
			return err
		}
		if benchParallelism == 0 {
			benchParallelism = cfg.Analysis.Parallelism
		}

		ctx := cmd.Context()
		eng, err := engine.Open(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("opening engine: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := eng.Close(closeCtx); err != nil {
				logger.Warn("closing engine", "error", err)
			}
		}()

		logger.Info("benchmarking", "roots", len(roots), "iterations", benchIterations, "parallelism", benchParallelism)
		res, err := benchmark.Run(ctx, eng.Analyzer(), benchmark.Input{
			ProjectID:   benchProject,
			Roots:       roots,
			Change:      change,
			Iterations:  benchIterations,
			Parallelism: benchParallelism,
		})
		if err != nil {
			return fmt.Errorf("running benchmark: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.Explanation)
		return nil
	},
}

func benchRoots(cfg *config.Config, entityType impact.EntityType) ([]impact.EntityRef, error) {
	if len(benchIDs) > 0 {
		roots := make([]impact.EntityRef, len(benchIDs))
		for i, id := range benchIDs {
			roots[i] = impact.EntityRef{Type: entityType, ID: id}
		}
		return roots, nil
	}
	if cfg.Repository.Type != config.RepositorySnapshot {
		return nil, fmt.Errorf("--id is required unless dependencies come from a snapshot")
	}
	snap, err := schema.LoadYAML(cfg.Repository.SnapshotPath)
	if err != nil {
		return nil, err
	}
	var roots []impact.EntityRef
	for _, e := range snap.Entities {
		if t, err := impact.ParseEntityType(e.Type); err == nil && t == entityType {
			roots = append(roots, impact.EntityRef{Type: t, ID: e.ID, Name: e.Name})
		}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("snapshot has no %s entities", entityType)
	}
	return roots, nil
}

func init() {
	benchCmd.Flags().Int64Var(&benchProject, "project", 0, "project id")
	benchCmd.Flags().StringVar(&benchType, "type", "table", "entity type of the roots")
	benchCmd.Flags().Int64SliceVar(&benchIDs, "id", nil, "root entity ids (repeatable)")
	benchCmd.Flags().StringVar(&benchChange, "change", "delete", "change type")
	benchCmd.Flags().IntVar(&benchIterations, "iterations", 3, "analyses per root")
	benchCmd.Flags().IntVar(&benchParallelism, "parallel", 0, "concurrent analyses (default: analysis.parallelism)")
	_ = benchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(benchCmd)
}
