package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredPath(kind DependencyType, criticality, depth int) DependencyPath {
	nodes := make([]EntityRef, depth+1)
	for i := range nodes {
		nodes[i] = ref(EntityTypeTable, int64(i+1))
	}
	return DependencyPath{
		PathID:                 PathID(nodes),
		Nodes:                  nodes,
		Depth:                  depth,
		MaxDependencyType:      kind,
		DominantDependencyType: kind,
		MaxCriticalityLevel:    criticality,
		DominantEntity:         nodes[0],
	}
}

func TestEvaluate_DeleteModifyCritical(t *testing.T) {
	r := NewRiskEvaluator(DefaultRiskPolicy())

	got, err := r.Evaluate(scoredPath(DependencyDelete, 5, 1), ChangeModify)
	require.NoError(t, err)
	assert.Equal(t, 100, got.RiskScore)
	assert.Equal(t, ImpactCritical, got.ImpactLevel)
}

func TestEvaluate_DepthDecayFloor(t *testing.T) {
	r := NewRiskEvaluator(DefaultRiskPolicy())

	got, err := r.Evaluate(scoredPath(DependencyDelete, 1, 20), ChangeCreate)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RiskScore)
	assert.Equal(t, ImpactNone, got.ImpactLevel)
}

func TestEvaluate_EmptyPath(t *testing.T) {
	r := NewRiskEvaluator(DefaultRiskPolicy())

	_, err := r.Evaluate(DependencyPath{}, ChangeDelete)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestEvaluate_CarriesFieldsThrough(t *testing.T) {
	r := NewRiskEvaluator(DefaultRiskPolicy())
	in := scoredPath(DependencyUpdate, 4, 2)

	got, err := r.Evaluate(in, ChangeDelete)
	require.NoError(t, err)
	assert.Equal(t, in.PathID, got.PathID)
	assert.Equal(t, in.Nodes, got.Nodes)
	assert.Equal(t, in.DominantEntity, got.DominantEntity)
	assert.Equal(t, in.DominantDependencyType, got.DominantDependencyType)
	// 8 * 3 * 4 / 2
	assert.Equal(t, 48, got.RiskScore)
	assert.Equal(t, ImpactHigh, got.ImpactLevel)

	assert.Zero(t, in.RiskScore, "input must not be modified")
}

func TestScore_Table(t *testing.T) {
	r := NewRiskEvaluator(DefaultRiskPolicy())

	tests := []struct {
		kind        DependencyType
		change      ChangeType
		criticality int
		depth       int
		want        int
	}{
		{DependencySelect, ChangeCreate, 3, 1, 12},
		{DependencySelect, ChangeModify, 3, 3, 8},
		{DependencyInsert, ChangeDelete, 5, 4, 26},
		{DependencyUpdate, ChangeModify, 2, 5, 6},
		{DependencyLogicalFk, ChangeDelete, 4, 2, 36},
		{DependencyUnknown, ChangeDelete, 5, 1, 30},
		{DependencyDelete, ChangeDelete, 5, 6, 30},
		{DependencyDelete, ChangeDelete, 0, 1, 0},
		{DependencyDelete, ChangeDelete, -2, 1, 0},
		{DependencySelect, ChangeCreate, 3, 0, 12},
	}
	for _, tt := range tests {
		got := r.Score(tt.kind, tt.change, tt.criticality, tt.depth)
		assert.Equal(t, tt.want, got, "%s/%s crit=%d depth=%d", tt.kind, tt.change, tt.criticality, tt.depth)
	}
}

func TestDepthDecay(t *testing.T) {
	tests := map[int]float64{
		-1: 1,
		0:  1,
		1:  1,
		2:  0.5,
		4:  0.25,
		5:  0.2,
		6:  0.2,
		50: 0.2,
	}
	for depth, want := range tests {
		assert.InDelta(t, want, DepthDecay(depth), 1e-9, "depth %d", depth)
	}
}

func TestLevelThresholds(t *testing.T) {
	th := DefaultRiskPolicy().Thresholds

	tests := []struct {
		score int
		want  ImpactLevel
	}{
		{0, ImpactNone},
		{4, ImpactNone},
		{5, ImpactLow},
		{19, ImpactLow},
		{20, ImpactMedium},
		{39, ImpactMedium},
		{40, ImpactHigh},
		{69, ImpactHigh},
		{70, ImpactCritical},
		{450, ImpactCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Level(tt.score), "score %d", tt.score)
	}
}

func TestWeightsAndMultipliers(t *testing.T) {
	p := DefaultRiskPolicy()

	assert.Equal(t, 10, p.Weights.For(DependencyDelete))
	assert.Equal(t, 8, p.Weights.For(DependencyUpdate))
	assert.Equal(t, 7, p.Weights.For(DependencyInsert))
	assert.Equal(t, 6, p.Weights.For(DependencyLogicalFk))
	assert.Equal(t, 4, p.Weights.For(DependencySelect))
	assert.Equal(t, 2, p.Weights.For(DependencyUnknown))

	assert.Equal(t, 1, p.Multipliers.For(ChangeCreate))
	assert.Equal(t, 2, p.Multipliers.For(ChangeModify))
	assert.Equal(t, 3, p.Multipliers.For(ChangeDelete))
}

func TestRiskEvaluator_PolicySnapshot(t *testing.T) {
	custom := DefaultRiskPolicy()
	custom.Version = "impact-risk/custom"
	custom.Weights.Select = 9

	r := NewRiskEvaluator(custom)
	assert.Equal(t, "impact-risk/custom", r.Version())

	snap := r.Policy()
	snap.Weights.Select = 1
	assert.Equal(t, 9, r.Policy().Weights.Select, "snapshot must not alias evaluator state")

	assert.Equal(t, DefaultPolicyVersion, NewRiskEvaluator(RiskPolicy{}).Version())
}

func TestRiskPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultRiskPolicy().Validate())

	bad := DefaultRiskPolicy()
	bad.Thresholds.High = bad.Thresholds.Medium
	assert.Error(t, bad.Validate())

	bad = DefaultRiskPolicy()
	bad.Weights.Delete = -1
	assert.Error(t, bad.Validate())

	bad = DefaultRiskPolicy()
	bad.Multipliers.Modify = -2
	assert.Error(t, bad.Validate())
}

func TestRiskPolicy_ValidateReportsFirstBadField(t *testing.T) {
	bad := DefaultRiskPolicy()
	bad.Weights.Unknown = -1
	bad.Weights.Insert = -3
	bad.Weights.Delete = -5

	for range 20 {
		err := bad.Validate()
		require.Error(t, err)
		assert.Equal(t, "weight INSERT must not be negative (got -3)", err.Error())
	}

	bad = DefaultRiskPolicy()
	bad.Multipliers.Delete = -1
	bad.Multipliers.Modify = -1
	assert.EqualError(t, bad.Validate(), "multiplier MODIFY must not be negative (got -1)")
}
