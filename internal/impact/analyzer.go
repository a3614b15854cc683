package impact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Default enumeration bounds.
const (
	DefaultMaxDepth = 5
	DefaultMaxPaths = 500
)

// DependencyRepository supplies the raw dependency rows for an analysis.
type DependencyRepository interface {
	GetDownstreamDependents(ctx context.Context, projectID int64, rootType EntityType, rootID int64) ([]DependencyRow, error)
}

// Analyzer runs the full impact pipeline. It holds no per-call state and is
// safe for concurrent use.
type Analyzer struct {
	repo       DependencyRepository
	enumerator *Enumerator
	evaluator  *RiskEvaluator
	policy     ApprovalPolicy
	logger     *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for stage-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithEnumerator replaces the default enumeration bounds.
func WithEnumerator(e *Enumerator) Option {
	return func(a *Analyzer) {
		a.enumerator = e
	}
}

// WithRiskEvaluator replaces the default scoring policy.
func WithRiskEvaluator(r *RiskEvaluator) Option {
	return func(a *Analyzer) {
		a.evaluator = r
	}
}

// NewAnalyzer creates an Analyzer reading rows from repo.
func NewAnalyzer(repo DependencyRepository, opts ...Option) *Analyzer {
	a := &Analyzer{
		repo:       repo,
		enumerator: &Enumerator{maxDepth: DefaultMaxDepth, maxPaths: DefaultMaxPaths},
		evaluator:  NewRiskEvaluator(DefaultRiskPolicy()),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Evaluator returns the risk evaluator in use.
func (a *Analyzer) Evaluator() *RiskEvaluator {
	return a.evaluator
}

// Enumerator returns the path enumerator in use.
func (a *Analyzer) Enumerator() *Enumerator {
	return a.enumerator
}

// Analyze computes the impact of applying change to root. The repository
// fetch is the only step that observes ctx.
func (a *Analyzer) Analyze(ctx context.Context, projectID int64, root EntityRef, change ChangeType) (*ImpactResult, error) {
	ctx, span := startAnalysisSpan(ctx, projectID, root, change)
	defer span.End()

	result, err := a.analyze(ctx, projectID, root, change)
	if err != nil {
		setAnalysisSpanError(span, err)
		return nil, err
	}
	setAnalysisSpanResult(span, result)
	return result, nil
}

func (a *Analyzer) analyze(ctx context.Context, projectID int64, root EntityRef, change ChangeType) (*ImpactResult, error) {
	rows, err := a.repo.GetDownstreamDependents(ctx, projectID, root.Type, root.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching dependents of %s: %w", root, err)
	}
	a.logger.Debug("fetched dependency rows", "project_id", projectID, "root", root.String(), "rows", len(rows))

	if len(rows) == 0 {
		return &ImpactResult{
			RootEntity:    root,
			ChangeType:    change,
			OverallImpact: OverallImpactSummary{WorstImpactLevel: ImpactNone},
			EntityImpacts: []EntityImpact{},
			PolicyVersion: a.evaluator.Version(),
		}, nil
	}

	g, err := BuildGraph(rows)
	if err != nil {
		return nil, fmt.Errorf("building dependency graph: %w", err)
	}
	a.logger.Debug("built dependency graph", "nodes", g.NodeCount(), "edges", g.EdgeCount())

	enumerated, err := a.enumerator.Enumerate(g, root)
	if err != nil {
		return nil, fmt.Errorf("enumerating paths: %w", err)
	}
	a.logger.Debug("enumerated paths",
		"paths", len(enumerated.Paths),
		"truncated", enumerated.IsTruncated,
		"max_depth_reached", enumerated.MaxDepthReached,
	)

	scored := make([]DependencyPath, 0, len(enumerated.Paths))
	for _, p := range enumerated.Paths {
		s, err := a.evaluator.Evaluate(p, change)
		if err != nil {
			return nil, fmt.Errorf("scoring path %s: %w", p.PathID, err)
		}
		scored = append(scored, s)
	}

	agg := Aggregate(scored)
	overall := a.policy.Evaluate(agg.OverallImpact)
	a.logger.Debug("aggregated impact",
		"entities", len(agg.EntityImpacts),
		"worst_level", overall.WorstImpactLevel.String(),
		"worst_score", overall.WorstRiskScore,
		"requires_approval", overall.RequiresApproval,
	)

	resolved := root
	if node, ok := g.Node(root); ok && node.Entity.Name != "" {
		resolved = node.Entity
	}

	return &ImpactResult{
		RootEntity:       resolved,
		ChangeType:       change,
		TotalPaths:       len(enumerated.Paths),
		TotalEntities:    len(agg.EntityImpacts),
		IsTruncated:      enumerated.IsTruncated,
		TruncationReason: enumerated.TruncationReason,
		MaxDepthReached:  enumerated.MaxDepthReached,
		OverallImpact:    overall,
		EntityImpacts:    agg.EntityImpacts,
		PolicyVersion:    a.evaluator.Version(),
	}, nil
}
