package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/report"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
)

func TestAnalysisRoot_ZeroIDIsAnID(t *testing.T) {
	cfg := config.Default()
	cfg.Repository.Type = config.RepositoryPostgres

	root, err := analysisRoot(cfg, impact.EntityTypeTable, true, 0, "")
	require.NoError(t, err)
	assert.Equal(t, impact.EntityRef{Type: impact.EntityTypeTable, ID: 0}, root)
}

func TestAnalysisRoot_ByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	snap := &schema.Snapshot{
		ProjectID: 1,
		Entities:  []schema.Entity{{Type: "VIEW", ID: 7, Name: "order_totals"}},
	}
	require.NoError(t, snap.WriteYAML(path))

	cfg := config.Default()
	cfg.Repository.Type = config.RepositorySnapshot
	cfg.Repository.SnapshotPath = path

	root, err := analysisRoot(cfg, impact.EntityTypeView, false, 0, "ORDER_TOTALS")
	require.NoError(t, err)
	assert.Equal(t, int64(7), root.ID)
	assert.Equal(t, "order_totals", root.Name)

	_, err = analysisRoot(cfg, impact.EntityTypeView, false, 0, "")
	assert.ErrorContains(t, err, "one of --id or --name")

	cfg.Repository.Type = config.RepositoryPostgres
	_, err = analysisRoot(cfg, impact.EntityTypeView, false, 0, "order_totals")
	assert.ErrorContains(t, err, "snapshot repository")
}

func TestShowReport(t *testing.T) {
	orders := impact.EntityRef{Type: impact.EntityTypeTable, ID: 1, Name: "orders"}
	res := &impact.ImpactResult{
		RootEntity:    orders,
		ChangeType:    impact.ChangeDelete,
		PolicyVersion: impact.DefaultPolicyVersion,
	}
	path := filepath.Join(t.TempDir(), "impact.json")
	rep := report.New(&engine.Outcome{ID: "an-1", ProjectID: 1, Result: res}, time.Now())
	require.NoError(t, report.WriteFile(rep, path, report.FormatJSON))

	var out bytes.Buffer
	require.NoError(t, showReport(&out, path, report.FormatMarkdown))
	assert.Contains(t, out.String(), "`Table:1 (orders)`")

	out.Reset()
	require.NoError(t, showReport(&out, path, report.FormatText))
	assert.Contains(t, out.String(), "No downstream dependents.")
}

func TestShowReport_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, showReport(&bytes.Buffer{}, filepath.Join(dir, "missing.json"), report.FormatText))

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"version":"1"}`), 0o644))
	assert.ErrorContains(t, showReport(&bytes.Buffer{}, empty, report.FormatText), "no analysis result")
}
