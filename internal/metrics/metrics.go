// Package metrics exposes Prometheus counters for analyses and the HTTP API.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

// Registry holds all metrics for the application.
type Registry struct {
	// Analysis metrics
	AnalysesTotal     *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	RiskScore         prometheus.Histogram
	ApprovalsRequired prometheus.Counter
	TruncatedTotal    prometheus.Counter
	AnalysisErrors    prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initAnalysisMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initAnalysisMetrics() {
	r.AnalysesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "acto_impact_analyses_total",
			Help: "Completed impact analyses by change type and worst impact level",
		},
		[]string{"change_type", "level"},
	)

	r.AnalysisDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "acto_impact_analysis_duration_seconds",
			Help:    "Impact analysis latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.RiskScore = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "acto_impact_worst_risk_score",
			Help:    "Worst path risk score per analysis",
			Buckets: []float64{0, 5, 20, 40, 70, 100, 150, 250},
		},
	)

	r.ApprovalsRequired = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "acto_impact_approvals_required_total",
			Help: "Analyses whose outcome requires approval",
		},
	)

	r.TruncatedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "acto_impact_truncated_total",
			Help: "Analyses whose path enumeration hit a bound",
		},
	)

	r.AnalysisErrors = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "acto_impact_analysis_errors_total",
			Help: "Impact analyses that failed",
		},
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "acto_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acto_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

// ObserveAnalysis records one completed analysis.
func (r *Registry) ObserveAnalysis(result *impact.ImpactResult, elapsed time.Duration) {
	r.AnalysesTotal.WithLabelValues(result.ChangeType.String(), result.OverallImpact.WorstImpactLevel.String()).Inc()
	r.AnalysisDuration.Observe(elapsed.Seconds())
	r.RiskScore.Observe(float64(result.OverallImpact.WorstRiskScore))
	if result.OverallImpact.RequiresApproval {
		r.ApprovalsRequired.Inc()
	}
	if result.IsTruncated {
		r.TruncatedTotal.Inc()
	}
}

// CacheSnapshot is a repository cache's cumulative hits and misses and its
// current entry count.
type CacheSnapshot struct {
	Hits    int64
	Misses  int64
	Entries int
}

// CacheStatsFunc reports the current cache counts.
type CacheStatsFunc func() CacheSnapshot

// RegisterCache exposes a repository cache through collectors that read
// stats at scrape time. Registering twice on the same registry is a no-op.
func (r *Registry) RegisterCache(stats CacheStatsFunc) {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "acto_repository_cache_hits_total",
			Help: "Dependency lookups served from the repository cache",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "acto_repository_cache_misses_total",
			Help: "Dependency lookups that went to the repository",
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "acto_repository_cache_entries",
			Help: "Roots currently held in the repository cache",
		}, func() float64 { return float64(stats().Entries) }),
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
