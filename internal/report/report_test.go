package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/audit"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/state"
)

func sampleReport() *ImpactReport {
	orders := impact.EntityRef{Type: impact.EntityTypeTable, ID: 1, Name: "orders"}
	purge := impact.EntityRef{Type: impact.EntityTypeSp, ID: 2, Name: "purge_orders"}
	path := impact.DependencyPath{
		PathID:      "Table:1->Sp:2",
		Nodes:       []impact.EntityRef{orders, purge},
		Edges:       []impact.DependencyType{impact.DependencyDelete},
		Depth:       1,
		RiskScore:   150,
		ImpactLevel: impact.ImpactCritical,
	}
	res := &impact.ImpactResult{
		RootEntity:      orders,
		ChangeType:      impact.ChangeDelete,
		TotalPaths:      1,
		TotalEntities:   1,
		MaxDepthReached: 1,
		OverallImpact: impact.OverallImpactSummary{
			WorstImpactLevel: impact.ImpactCritical,
			WorstRiskScore:   150,
			TriggeringEntity: &purge,
			TriggeringPathID: path.PathID,
			RequiresApproval: true,
		},
		EntityImpacts: []impact.EntityImpact{{
			Entity:               purge,
			WorstCaseImpactLevel: impact.ImpactCritical,
			WorstCaseRiskScore:   150,
			CumulativeRiskScore:  150,
			DominantPathID:       path.PathID,
			Paths:                []impact.DependencyPath{path},
		}},
		PolicyVersion: impact.DefaultPolicyVersion,
	}
	approval := audit.ApprovalRequest{ID: "req-1", Status: audit.StatusPending}
	return New(&engine.Outcome{ID: "an-1", ProjectID: 7, Result: res, Approval: &approval},
		time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC))
}

func TestText(t *testing.T) {
	out := Text(sampleReport())

	assert.Contains(t, out, "Root:     Table:1 (orders)")
	assert.Contains(t, out, "Overall:  Critical (score 150) via Table:1->Sp:2")
	assert.Contains(t, out, "Approval: REQUIRED (request req-1)")
	assert.Contains(t, out, "Paths:    1 across 1 entities, max depth 1")
	assert.Contains(t, out, "Sp:2 (purge_orders)")
	assert.NotContains(t, out, "truncated")
}

func TestText_NoDependents(t *testing.T) {
	r := &ImpactReport{Result: &impact.ImpactResult{
		RootEntity:    impact.EntityRef{Type: impact.EntityTypeView, ID: 3},
		ChangeType:    impact.ChangeModify,
		EntityImpacts: []impact.EntityImpact{},
	}}
	out := Text(r)
	assert.Contains(t, out, "Overall:  None (score 0)\n")
	assert.Contains(t, out, "Approval: not required")
	assert.Contains(t, out, "No downstream dependents.")
}

func TestText_Truncated(t *testing.T) {
	r := sampleReport()
	r.Result.IsTruncated = true
	r.Result.TruncationReason = impact.TruncationReasonLimits
	assert.Contains(t, Text(r), "(truncated: max_depth_or_max_paths)")
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleReport())
	assert.True(t, strings.HasPrefix(out, "### Impact of DELETE on `Table:1 (orders)`"))
	assert.Contains(t, out, "- Policy: `impact-risk/v1`")
	assert.Contains(t, out, "| Sp:2 (purge_orders) |")
}

func TestRender_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, sampleReport(), "yaml"))
}

func TestJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "impact.json")
	require.NoError(t, WriteFile(sampleReport(), path, FormatJSON))

	loaded, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "1", loaded.Version)
	assert.Equal(t, "an-1", loaded.AnalysisID)
	assert.Equal(t, int64(7), loaded.ProjectID)
	assert.Equal(t, impact.ImpactCritical, loaded.Result.OverallImpact.WorstImpactLevel)
	assert.Equal(t, impact.EntityTypeSp, loaded.Result.OverallImpact.TriggeringEntity.Type)
	require.NotNil(t, loaded.Approval)
	assert.Equal(t, "req-1", loaded.Approval.ID)
}

func TestReadJSON_Missing(t *testing.T) {
	_, err := ReadJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	assert.Equal(t, "No analyses recorded yet.\n", History(nil))

	out := History([]state.Entry{{
		ProjectID: 7, RootType: "TABLE", RootID: 1, RootName: "orders",
		ChangeType: "DELETE", WorstLevel: "Critical", WorstScore: 150,
		TotalPaths: 3, Truncated: true, RequiresApproval: true,
		AnalyzedAt: time.Now(),
	}})
	assert.Contains(t, out, "TABLE:1 (orders)")
	assert.Contains(t, out, "3+")
	assert.Contains(t, out, "required")
}

func TestPolicy(t *testing.T) {
	out := Policy(impact.DefaultRiskPolicy())
	assert.True(t, strings.HasPrefix(out, "Policy impact-risk/v1\n"))
	assert.Contains(t, out, "LOGICAL_FK")
	assert.Contains(t, out, "Critical")
	assert.Contains(t, out, "required")
	assert.Contains(t, out, "min(depth, 5)")
}
