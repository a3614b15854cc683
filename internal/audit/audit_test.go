package audit

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

func criticalResult() *impact.ImpactResult {
	return &impact.ImpactResult{
		RootEntity: impact.EntityRef{Type: impact.EntityTypeTable, ID: 1, Name: "orders"},
		ChangeType: impact.ChangeDelete,
		OverallImpact: impact.OverallImpactSummary{
			WorstImpactLevel: impact.ImpactCritical,
			WorstRiskScore:   100,
			TriggeringPathID: "Table:1->Sp:2",
			RequiresApproval: true,
		},
		PolicyVersion: impact.DefaultPolicyVersion,
	}
}

func TestNewApprovalRequest(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	req := NewApprovalRequest(42, criticalResult(), at)

	_, err := uuid.Parse(req.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), req.ProjectID)
	assert.Equal(t, "TABLE", req.RootType)
	assert.Equal(t, int64(1), req.RootID)
	assert.Equal(t, "orders", req.RootName)
	assert.Equal(t, "DELETE", req.ChangeType)
	assert.Equal(t, "Critical", req.Level)
	assert.Equal(t, 100, req.Score)
	assert.Equal(t, "Table:1->Sp:2", req.TriggeringPathID)
	assert.Equal(t, impact.DefaultPolicyVersion, req.PolicyVersion)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, time.UTC, req.CreatedAt.Location())
	assert.True(t, req.CreatedAt.Equal(at))
}

func TestMemoryRecorder_PendingNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRecorder()

	base := time.Now()
	for i, project := range []int64{1, 2, 1, 1} {
		req := NewApprovalRequest(project, criticalResult(), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, m.Record(ctx, req))
	}
	approved := NewApprovalRequest(1, criticalResult(), base.Add(time.Hour))
	approved.Status = StatusApproved
	require.NoError(t, m.Record(ctx, approved))

	all, err := m.Pending(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	mine, err := m.Pending(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt))
	for _, r := range mine {
		assert.Equal(t, int64(1), r.ProjectID)
	}

	assert.Len(t, m.Requests(), 5)
}

func TestMemoryRecorder_RecordErr(t *testing.T) {
	m := &MemoryRecorder{RecordErr: errors.New("store down")}
	err := m.Record(context.Background(), NewApprovalRequest(1, criticalResult(), time.Now()))
	assert.EqualError(t, err, "store down")
	assert.Empty(t, m.Requests())
}

func TestMemoryRecorder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewMemoryRecorder().Record(ctx, NewApprovalRequest(1, criticalResult(), time.Now()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMongoRecorder(t *testing.T) {
	uri := os.Getenv("ACTO_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ACTO_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := "approval_requests_" + uuid.NewString()[:8]
	m, err := NewMongoRecorder(ctx, uri, "acto_test", collection)
	require.NoError(t, err)
	defer func() {
		_ = m.collection.Drop(ctx)
		_ = m.Close(ctx)
	}()

	older := NewApprovalRequest(7, criticalResult(), time.Now().Add(-time.Minute))
	newer := NewApprovalRequest(7, criticalResult(), time.Now())
	require.NoError(t, m.Record(ctx, older))
	require.NoError(t, m.Record(ctx, newer))
	require.NoError(t, m.Record(ctx, NewApprovalRequest(8, criticalResult(), time.Now())))

	pending, err := m.Pending(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, newer.ID, pending[0].ID)
	assert.Equal(t, older.ID, pending[1].ID)
}
