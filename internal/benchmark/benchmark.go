// Package benchmark measures analysis latency against a live repository, to
// size max_depth, max_paths and parallelism before putting the engine in a
// CI gate.
package benchmark

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

// Analyzer runs a single impact analysis.
type Analyzer interface {
	Analyze(ctx context.Context, projectID int64, root impact.EntityRef, change impact.ChangeType) (*impact.ImpactResult, error)
}

// Input defines parameters for a benchmark run.
type Input struct {
	ProjectID   int64
	Roots       []impact.EntityRef
	Change      impact.ChangeType
	Iterations  int // default 1
	Parallelism int // default 1
}

// Result holds the output of a benchmark run.
type Result struct {
	Analyses    int           `yaml:"analyses" json:"analyses"`
	Elapsed     time.Duration `yaml:"elapsed" json:"elapsed"`
	PerSecond   float64       `yaml:"per_second" json:"per_second"`
	P50         time.Duration `yaml:"p50" json:"p50"`
	P95         time.Duration `yaml:"p95" json:"p95"`
	Max         time.Duration `yaml:"max" json:"max"`
	MaxPaths    int           `yaml:"max_paths" json:"max_paths"`
	SlowestRoot string        `yaml:"slowest_root" json:"slowest_root"`
	Truncated   int           `yaml:"truncated" json:"truncated"`
	Parallelism int           `yaml:"parallelism" json:"parallelism"`
	Explanation string        `yaml:"explanation" json:"explanation"`
}

type sample struct {
	root      impact.EntityRef
	elapsed   time.Duration
	paths     int
	truncated bool
}

// Run analyzes every root Iterations times and reports latency percentiles.
// The first failing analysis stops the run.
func Run(ctx context.Context, a Analyzer, input Input) (*Result, error) {
	if len(input.Roots) == 0 {
		return nil, fmt.Errorf("no roots to benchmark")
	}
	if input.Iterations <= 0 {
		input.Iterations = 1
	}
	if input.Parallelism <= 0 {
		input.Parallelism = 1
	}

	var (
		mu      sync.Mutex
		samples = make([]sample, 0, len(input.Roots)*input.Iterations)
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(input.Parallelism)
	for i := 0; i < input.Iterations; i++ {
		for _, root := range input.Roots {
			g.Go(func() error {
				began := time.Now()
				res, err := a.Analyze(gctx, input.ProjectID, root, input.Change)
				if err != nil {
					return fmt.Errorf("analyzing %s: %w", root, err)
				}
				s := sample{root: root, elapsed: time.Since(began), paths: res.TotalPaths, truncated: res.IsTruncated}
				mu.Lock()
				samples = append(samples, s)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := summarize(samples, time.Since(start))
	r.Parallelism = input.Parallelism
	r.Explanation = explain(r)
	return r, nil
}

func summarize(samples []sample, elapsed time.Duration) *Result {
	r := &Result{Analyses: len(samples), Elapsed: elapsed}
	if len(samples) == 0 {
		return r
	}

	durations := make([]time.Duration, len(samples))
	for i, s := range samples {
		durations[i] = s.elapsed
		if s.elapsed >= r.Max {
			r.Max = s.elapsed
			r.SlowestRoot = s.root.String()
		}
		r.MaxPaths = max(r.MaxPaths, s.paths)
		if s.truncated {
			r.Truncated++
		}
	}
	slices.Sort(durations)
	r.P50 = percentile(durations, 50)
	r.P95 = percentile(durations, 95)

	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	r.PerSecond = float64(len(samples)) / elapsed.Seconds()
	return r
}

// percentile uses nearest rank on sorted durations.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	return sorted[max(rank-1, 0)]
}

func explain(r *Result) string {
	s := fmt.Sprintf(
		"Ran %d analyses in %s with parallelism %d (%.1f/s). "+
			"Latency p50 %s, p95 %s, max %s (%s). Largest result had %d paths.",
		r.Analyses, formatDuration(r.Elapsed), r.Parallelism, r.PerSecond,
		formatDuration(r.P50), formatDuration(r.P95), formatDuration(r.Max), r.SlowestRoot, r.MaxPaths)
	if r.Truncated > 0 {
		s += fmt.Sprintf(" %d analyses hit max_depth or max_paths.", r.Truncated)
	}
	return s
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}
