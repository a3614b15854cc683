package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/report"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/telemetry"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/tui"
)

var (
	analyzeProject        int64
	analyzeType           string
	analyzeID             int64
	analyzeName           string
	analyzeChange         string
	analyzeFormat         string
	analyzeOutput         string
	analyzeInteractive    bool
	analyzeFailOnApproval bool
)

// errApprovalRequired makes `acto analyze --fail-on-approval` exit non-zero.
var errApprovalRequired = errors.New("change requires approval")

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the impact of changing one entity",
	Long: `Walk every dependency path downstream of an entity, score each path and
report the affected entities, the overall impact level and whether the
change needs approval.

The entity can be given by id, or by name when dependencies come from a
snapshot file.`,
	Example: `  acto analyze --project 1 --type table --id 42 --change delete
  acto analyze --project 1 --type view --name order_totals --change modify --format markdown`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := cliLogger(cfg)

		entityType, err := impact.ParseEntityType(analyzeType)
		if err != nil {
			return fmt.Errorf("parsing --type: %w", err)
		}
		change, err := impact.ParseChangeType(analyzeChange)
		if err != nil {
			return fmt.Errorf("parsing --change: %w", err)
		}
		root, err := analysisRoot(cfg, entityType, cmd.Flags().Changed("id"), analyzeID, analyzeName)
		if err != nil {
			return err
		}

		shutdown, err := telemetry.Setup(cfg.Telemetry.Tracing, version, os.Stderr)
		if err != nil {
			return fmt.Errorf("configuring tracing: %w", err)
		}

		ctx := cmd.Context()
		eng, err := engine.Open(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("opening engine: %w", err)
		}

		out, err := eng.Analyze(ctx, engine.Request{ProjectID: analyzeProject, Root: root, Change: change})

		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := eng.Close(closeCtx); cerr != nil {
			logger.Warn("closing engine", "error", cerr)
		}
		if serr := shutdown(closeCtx); serr != nil {
			logger.Warn("flushing traces", "error", serr)
		}
		if err != nil {
			return fmt.Errorf("analyzing impact: %w", err)
		}

		rep := report.New(out, time.Now())
		if analyzeOutput != "" {
			if err := report.WriteFile(rep, analyzeOutput, analyzeFormat); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Report written to %s\n", analyzeOutput)
		}

		if analyzeInteractive {
			if err := tui.Browse(out.Result); err != nil {
				return fmt.Errorf("running browser: %w", err)
			}
		} else if analyzeOutput == "" {
			if err := report.Render(cmd.OutOrStdout(), rep, analyzeFormat); err != nil {
				return err
			}
		}

		if analyzeFailOnApproval && out.Result.OverallImpact.RequiresApproval {
			return errApprovalRequired
		}
		return nil
	},
}

// analysisRoot picks the root entity from --id when it was given, id 0
// included, and from --name otherwise.
func analysisRoot(cfg *config.Config, entityType impact.EntityType, idSet bool, id int64, name string) (impact.EntityRef, error) {
	if idSet {
		return impact.EntityRef{Type: entityType, ID: id, Name: name}, nil
	}
	return resolveByName(cfg, entityType, name)
}

// resolveByName looks an entity up in the snapshot file. Only snapshot
// repositories carry names that can be searched offline.
func resolveByName(cfg *config.Config, entityType impact.EntityType, name string) (impact.EntityRef, error) {
	if name == "" {
		return impact.EntityRef{}, fmt.Errorf("one of --id or --name is required")
	}
	if cfg.Repository.Type != config.RepositorySnapshot {
		return impact.EntityRef{}, fmt.Errorf("--name needs a snapshot repository; pass --id instead")
	}
	snap, err := schema.LoadYAML(cfg.Repository.SnapshotPath)
	if err != nil {
		return impact.EntityRef{}, err
	}
	e, ok := snap.FindEntity(entityType.Token(), name)
	if !ok {
		return impact.EntityRef{}, fmt.Errorf("no %s named %q in %s", entityType, name, cfg.Repository.SnapshotPath)
	}
	return impact.EntityRef{Type: entityType, ID: e.ID, Name: e.Name}, nil
}

func init() {
	analyzeCmd.Flags().Int64Var(&analyzeProject, "project", 0, "project id")
	analyzeCmd.Flags().StringVar(&analyzeType, "type", "", "entity type (table, view, sp, function)")
	analyzeCmd.Flags().Int64Var(&analyzeID, "id", 0, "entity id")
	analyzeCmd.Flags().StringVar(&analyzeName, "name", "", "entity name, resolved through the snapshot file")
	analyzeCmd.Flags().StringVar(&analyzeChange, "change", "", "change type (create, modify, delete)")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", report.FormatText, "output format (text, json, markdown)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write the report to a file instead of stdout")
	analyzeCmd.Flags().BoolVarP(&analyzeInteractive, "interactive", "i", false, "browse results in a terminal UI")
	analyzeCmd.Flags().BoolVar(&analyzeFailOnApproval, "fail-on-approval", false, "exit non-zero when the change requires approval")
	_ = analyzeCmd.MarkFlagRequired("project")
	_ = analyzeCmd.MarkFlagRequired("type")
	_ = analyzeCmd.MarkFlagRequired("change")
	rootCmd.AddCommand(analyzeCmd)
}
