package impact

import (
	"fmt"
	"math"
)

// DefaultPolicyVersion identifies the built-in weight and threshold tables.
const DefaultPolicyVersion = "impact-risk/v1"

// DepthDecayFloor is the smallest multiplier depth decay can reach.
const DepthDecayFloor = 0.2

// decayFloorDepth is the depth at which 1/depth meets DepthDecayFloor.
const decayFloorDepth = 5

// dependencyTypes and changeTypes list every member of their enumeration, in
// the order Validate reports them.
var (
	dependencyTypes = []DependencyType{
		DependencySelect, DependencyInsert, DependencyUpdate,
		DependencyDelete, DependencyLogicalFk, DependencyUnknown,
	}
	changeTypes = []ChangeType{ChangeCreate, ChangeModify, ChangeDelete}
)

// DependencyWeights is the base weight per dependency type.
type DependencyWeights struct {
	Select    int `yaml:"select" json:"select"`
	Insert    int `yaml:"insert" json:"insert"`
	Update    int `yaml:"update" json:"update"`
	Delete    int `yaml:"delete" json:"delete"`
	LogicalFk int `yaml:"logical_fk" json:"logical_fk"`
	Unknown   int `yaml:"unknown" json:"unknown"`
}

// For returns the weight of d.
func (w DependencyWeights) For(d DependencyType) int {
	switch d {
	case DependencySelect:
		return w.Select
	case DependencyInsert:
		return w.Insert
	case DependencyUpdate:
		return w.Update
	case DependencyDelete:
		return w.Delete
	case DependencyLogicalFk:
		return w.LogicalFk
	default:
		return w.Unknown
	}
}

// ChangeMultipliers scales risk by the kind of change proposed.
type ChangeMultipliers struct {
	Create int `yaml:"create" json:"create"`
	Modify int `yaml:"modify" json:"modify"`
	Delete int `yaml:"delete" json:"delete"`
}

// For returns the multiplier of c. Unrecognised change types count as Create.
func (m ChangeMultipliers) For(c ChangeType) int {
	switch c {
	case ChangeModify:
		return m.Modify
	case ChangeDelete:
		return m.Delete
	default:
		return m.Create
	}
}

// LevelThresholds are the inclusive lower bounds of each impact band.
// Scores below Low are ImpactNone.
type LevelThresholds struct {
	Low      int `yaml:"low" json:"low"`
	Medium   int `yaml:"medium" json:"medium"`
	High     int `yaml:"high" json:"high"`
	Critical int `yaml:"critical" json:"critical"`
}

// Level maps a score onto its band.
func (t LevelThresholds) Level(score int) ImpactLevel {
	switch {
	case score >= t.Critical:
		return ImpactCritical
	case score >= t.High:
		return ImpactHigh
	case score >= t.Medium:
		return ImpactMedium
	case score >= t.Low:
		return ImpactLow
	default:
		return ImpactNone
	}
}

// RiskPolicy is the full, versioned set of scoring constants.
type RiskPolicy struct {
	Version     string            `yaml:"version" json:"version"`
	Weights     DependencyWeights `yaml:"weights" json:"weights"`
	Multipliers ChangeMultipliers `yaml:"multipliers" json:"multipliers"`
	Thresholds  LevelThresholds   `yaml:"thresholds" json:"thresholds"`
}

// DefaultRiskPolicy returns the built-in policy.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		Version: DefaultPolicyVersion,
		Weights: DependencyWeights{
			Select:    4,
			Insert:    7,
			Update:    8,
			Delete:    10,
			LogicalFk: 6,
			Unknown:   2,
		},
		Multipliers: ChangeMultipliers{
			Create: 1,
			Modify: 2,
			Delete: 3,
		},
		Thresholds: LevelThresholds{
			Low:      5,
			Medium:   20,
			High:     40,
			Critical: 70,
		},
	}
}

// Validate checks that weights are non-negative and thresholds strictly ascend.
func (p RiskPolicy) Validate() error {
	for _, d := range dependencyTypes {
		if v := p.Weights.For(d); v < 0 {
			return fmt.Errorf("weight %s must not be negative (got %d)", d, v)
		}
	}
	for _, c := range changeTypes {
		if v := p.Multipliers.For(c); v < 0 {
			return fmt.Errorf("multiplier %s must not be negative (got %d)", c, v)
		}
	}
	t := p.Thresholds
	if !(0 < t.Low && t.Low < t.Medium && t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("thresholds must ascend strictly from a positive low (got %d/%d/%d/%d)",
			t.Low, t.Medium, t.High, t.Critical)
	}
	return nil
}

// DepthDecay returns max(DepthDecayFloor, 1/depth). Depth zero or below is
// a root-only path and decays by nothing.
func DepthDecay(depth int) float64 {
	if depth <= 0 {
		return 1
	}
	return math.Max(DepthDecayFloor, 1/float64(depth))
}

// RiskEvaluator scores dependency paths against a fixed policy.
type RiskEvaluator struct {
	policy RiskPolicy
}

// NewRiskEvaluator creates an evaluator for the given policy.
func NewRiskEvaluator(policy RiskPolicy) *RiskEvaluator {
	if policy.Version == "" {
		policy.Version = DefaultPolicyVersion
	}
	return &RiskEvaluator{policy: policy}
}

// Version returns the policy version the evaluator scores with.
func (r *RiskEvaluator) Version() string {
	return r.policy.Version
}

// Policy returns a copy of the scoring tables.
func (r *RiskEvaluator) Policy() RiskPolicy {
	return r.policy
}

// Score computes floor(weight × multiplier × criticality × DepthDecay(depth)).
// max(0.2, 1/d) equals 1/min(d, 5), so the product is an exact integer
// division.
func (r *RiskEvaluator) Score(dep DependencyType, change ChangeType, criticality, depth int) int {
	if criticality < 0 {
		criticality = 0
	}
	numerator := r.policy.Weights.For(dep) * r.policy.Multipliers.For(change) * criticality
	if depth <= 0 {
		return numerator
	}
	return numerator / min(depth, decayFloorDepth)
}

// Evaluate returns a copy of path with RiskScore and ImpactLevel set.
func (r *RiskEvaluator) Evaluate(path DependencyPath, change ChangeType) (DependencyPath, error) {
	if len(path.Nodes) == 0 {
		return DependencyPath{}, ErrEmptyPath
	}
	scored := path
	scored.RiskScore = r.Score(path.MaxDependencyType, change, path.MaxCriticalityLevel, path.Depth)
	scored.ImpactLevel = r.policy.Thresholds.Level(scored.RiskScore)
	return scored, nil
}
