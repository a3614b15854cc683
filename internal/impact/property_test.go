package impact

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var entityTokens = []string{"TABLE", "VIEW", "SP", "FUNCTION"}

// randomRows builds a dependency row set over a small id space so that
// cycles, diamonds and repeated edges occur often.
func randomRows(sources, targets []int) []DependencyRow {
	n := min(len(sources), len(targets))
	rows := make([]DependencyRow, 0, n)
	kinds := []string{"SELECT", "INSERT", "UPDATE", "DELETE", "LOGICAL_FK", "MERGE"}
	for i := 0; i < n; i++ {
		s, t := sources[i], targets[i]
		rows = append(rows, dep(
			entityTokens[s%len(entityTokens)], int64(s),
			entityTokens[t%len(entityTokens)], int64(t),
			kinds[(s+t)%len(kinds)],
		))
	}
	return rows
}

func TestGraphProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every outgoing edge starts at its node", prop.ForAll(
		func(sources, targets []int) bool {
			g, err := BuildGraph(randomRows(sources, targets))
			if err != nil {
				return false
			}
			for _, node := range g.Nodes() {
				for _, e := range g.Edges(node.Entity) {
					if !e.From.Same(node.Entity) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(15, gen.IntRange(1, 8)),
		gen.SliceOfN(15, gen.IntRange(1, 8)),
	))

	properties.Property("criticality is the truncated average with baseline 3", prop.ForAll(
		func(levels []int) bool {
			if len(levels) == 0 {
				return true
			}
			rows := make([]DependencyRow, len(levels))
			sum := 0
			for i, level := range levels {
				rows[i] = dep("SP", 1, "TABLE", int64(i+1), "SELECT")
				if level < 0 {
					sum += DefaultCriticality
					continue
				}
				rows[i] = withCriticality(rows[i], level)
				sum += level
			}
			g, err := BuildGraph(rows)
			if err != nil {
				return false
			}
			node, ok := g.Node(ref(EntityTypeSp, 1))
			return ok && node.CriticalityLevel == sum/len(levels)
		},
		gen.SliceOfN(7, gen.IntRange(-1, 5)),
	))

	properties.TestingRun(t)
}

func TestEnumeratorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("paths respect both bounds and never repeat a node", prop.ForAll(
		func(sources, targets []int, maxDepth, maxPaths int) bool {
			rows := randomRows(sources, targets)
			g, err := BuildGraph(rows)
			if err != nil {
				return false
			}
			if g.NodeCount() == 0 {
				return true
			}
			root := g.Nodes()[0].Entity
			e := mustEnumerator(maxDepth, maxPaths)
			res, err := e.Enumerate(g, root)
			if err != nil {
				return false
			}
			if len(res.Paths) > maxPaths {
				return false
			}
			for _, p := range res.Paths {
				if p.Depth > maxDepth || p.Depth < 1 || p.Depth > res.MaxDepthReached {
					return false
				}
				if !p.Nodes[0].Same(root) {
					return false
				}
				seen := make(map[EntityKey]bool)
				for _, n := range p.Nodes {
					if seen[n.Key()] {
						return false
					}
					seen[n.Key()] = true
				}
			}
			return res.IsTruncated == (res.TruncationReason == TruncationReasonLimits)
		},
		gen.SliceOfN(12, gen.IntRange(1, 7)),
		gen.SliceOfN(12, gen.IntRange(1, 7)),
		gen.IntRange(1, 4),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

func TestRiskProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	r := NewRiskEvaluator(DefaultRiskPolicy())
	kinds := []DependencyType{
		DependencyUnknown, DependencySelect, DependencyInsert,
		DependencyUpdate, DependencyDelete, DependencyLogicalFk,
	}

	properties.Property("score is non-decreasing in criticality", prop.ForAll(
		func(k, a, b, depth int) bool {
			lo, hi := min(a, b), max(a, b)
			return r.Score(kinds[k], ChangeModify, lo, depth) <= r.Score(kinds[k], ChangeModify, hi, depth)
		},
		gen.IntRange(0, len(kinds)-1),
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
		gen.IntRange(1, 30),
	))

	properties.Property("score is non-decreasing in change multiplier", prop.ForAll(
		func(k, criticality, depth int) bool {
			create := r.Score(kinds[k], ChangeCreate, criticality, depth)
			modify := r.Score(kinds[k], ChangeModify, criticality, depth)
			del := r.Score(kinds[k], ChangeDelete, criticality, depth)
			return create <= modify && modify <= del
		},
		gen.IntRange(0, len(kinds)-1),
		gen.IntRange(0, 10),
		gen.IntRange(1, 30),
	))

	properties.Property("approval iff High or Critical", prop.ForAll(
		func(score int) bool {
			level := r.Policy().Thresholds.Level(score)
			got := ApprovalPolicy{}.Evaluate(OverallImpactSummary{WorstImpactLevel: level, WorstRiskScore: score})
			return got.RequiresApproval == (level == ImpactHigh || level == ImpactCritical)
		},
		gen.IntRange(0, 200),
	))

	properties.TestingRun(t)
}
