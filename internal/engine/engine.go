// Package engine ties the impact analyzer to the rest of the system: the
// dependency repository, analysis history, the approval audit trail,
// metrics and live notifications. It is shared by the CLI and the API.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/audit"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/metrics"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/repository"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/state"
)

// Notifier is told about completed analyses and raised approvals.
type Notifier interface {
	ImpactAnalyzed(entry state.Entry)
	ApprovalRequired(req audit.ApprovalRequest)
}

// Request identifies one analysis.
type Request struct {
	ProjectID int64
	Root      impact.EntityRef
	Change    impact.ChangeType
}

// Outcome is an analysis result together with what the engine did with it.
type Outcome struct {
	ID        string                 `json:"id"`
	ProjectID int64                  `json:"project_id"`
	Result    *impact.ImpactResult   `json:"result"`
	Approval  *audit.ApprovalRequest `json:"approval,omitempty"`
}

// Engine is the core analysis engine shared by all interfaces.
type Engine struct {
	Config *config.Config
	Logger *slog.Logger

	analyzer    *impact.Analyzer
	repo        repository.Repository
	recorder    audit.Recorder
	metrics     *metrics.Registry
	notifier    Notifier
	historyPath string
	now         func() time.Time

	// serialises read-modify-write of the history file
	historyMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets where approval requests are stored.
func WithRecorder(r audit.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithNotifier sets the listener for analysis events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithHistoryPath overrides the history file location.
func WithHistoryPath(path string) Option {
	return func(e *Engine) { e.historyPath = path }
}

// New creates an Engine over an already-open repository.
func New(cfg *config.Config, logger *slog.Logger, repo repository.Repository, opts ...Option) (*Engine, error) {
	enumerator, err := impact.NewEnumerator(cfg.Analysis.MaxDepth, cfg.Analysis.MaxPaths)
	if err != nil {
		return nil, fmt.Errorf("configuring enumerator: %w", err)
	}

	e := &Engine{
		Config:      cfg,
		Logger:      logger,
		repo:        repo,
		historyPath: config.ExpandHome(state.DefaultPath),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.recorder == nil {
		e.recorder = audit.NewMemoryRecorder()
	}
	if e.metrics == nil {
		e.metrics = metrics.NewRegistry()
	}

	if c, ok := repo.(*repository.Cached); ok {
		e.metrics.RegisterCache(func() metrics.CacheSnapshot {
			st := c.Stats()
			return metrics.CacheSnapshot{Hits: st.Hits, Misses: st.Misses, Entries: st.Entries}
		})
	}

	e.analyzer = impact.NewAnalyzer(repo,
		impact.WithLogger(logger),
		impact.WithEnumerator(enumerator),
		impact.WithRiskEvaluator(impact.NewRiskEvaluator(cfg.Analysis.Policy)),
	)
	return e, nil
}

// Open connects the configured repository and audit store and creates an
// Engine over them.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	repo, err := repository.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Audit.Enabled() {
		rec, err := audit.NewMongoRecorder(ctx, cfg.Audit.ConnectionString, cfg.Audit.Database, cfg.Audit.Collection)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("opening audit store: %w", err)
		}
		opts = append([]Option{WithRecorder(rec)}, opts...)
	}

	e, err := New(cfg, logger, repo, opts...)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the repository and the audit store.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing repository: %w", err))
		}
	}
	if err := e.recorder.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing audit store: %w", err))
	}
	return errors.Join(errs...)
}

// Metrics returns the registry analyses are reported to.
func (e *Engine) Metrics() *metrics.Registry {
	return e.metrics
}

// Analyzer returns the underlying analyzer. Analyses run through it skip
// history, metrics and approval recording.
func (e *Engine) Analyzer() *impact.Analyzer {
	return e.analyzer
}

// Policy returns the risk policy analyses are scored with.
func (e *Engine) Policy() impact.RiskPolicy {
	return e.analyzer.Evaluator().Policy()
}

// Analyze runs one analysis, appends it to the history and raises an
// approval request when the outcome requires one.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	start := e.now()
	result, err := e.analyzer.Analyze(ctx, req.ProjectID, req.Root, req.Change)
	if err != nil {
		e.metrics.AnalysisErrors.Inc()
		return nil, err
	}
	e.metrics.ObserveAnalysis(result, e.now().Sub(start))

	out := &Outcome{ID: uuid.NewString(), ProjectID: req.ProjectID, Result: result}
	entry := state.NewEntry(out.ID, req.ProjectID, result, start)

	e.Logger.Info("impact analyzed",
		"id", out.ID,
		"project_id", req.ProjectID,
		"root", result.RootEntity.String(),
		"change", result.ChangeType.String(),
		"level", result.OverallImpact.WorstImpactLevel.String(),
		"score", result.OverallImpact.WorstRiskScore,
		"paths", result.TotalPaths,
		"truncated", result.IsTruncated)

	if err := e.appendHistory(entry); err != nil {
		e.Logger.Warn("could not save analysis history", "error", err)
	}

	if result.OverallImpact.RequiresApproval {
		approval := audit.NewApprovalRequest(req.ProjectID, result, start)
		if err := e.recorder.Record(ctx, approval); err != nil {
			return nil, fmt.Errorf("recording approval request: %w", err)
		}
		out.Approval = &approval
		e.Logger.Warn("change requires approval", "approval_id", approval.ID, "level", approval.Level)
	}

	if e.notifier != nil {
		e.notifier.ImpactAnalyzed(entry)
		if out.Approval != nil {
			e.notifier.ApprovalRequired(*out.Approval)
		}
	}
	return out, nil
}

// AnalyzeBatch runs independent analyses concurrently, at most
// analysis.parallelism at a time. Outcomes are returned in request order.
// The first failure cancels the remaining analyses.
func (e *Engine) AnalyzeBatch(ctx context.Context, reqs []Request) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	limit := e.Config.Analysis.Parallelism
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, req := range reqs {
		g.Go(func() error {
			out, err := e.Analyze(ctx, req)
			if err != nil {
				return fmt.Errorf("analyzing %s: %w", req.Root, err)
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// History loads the analysis history.
func (e *Engine) History() (*state.History, error) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	return state.Load(e.historyPath)
}

// PendingApprovals lists pending approval requests, newest first.
func (e *Engine) PendingApprovals(ctx context.Context, projectID int64, limit int) ([]audit.ApprovalRequest, error) {
	return e.recorder.Pending(ctx, projectID, limit)
}

func (e *Engine) appendHistory(entry state.Entry) error {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	h, err := state.Load(e.historyPath)
	if err != nil {
		return err
	}
	h.Append(entry, state.DefaultLimit)
	return h.Save(e.historyPath)
}
