// Package metrics exposes Prometheus instrumentation for the decision
// pipeline, grounded on the teacher's interfaces/http MetricsRegistry:
// the same histogram/counter/gauge shape, adapted from scan pipeline
// steps to cluster pipeline stages. Each Registry owns a private
// prometheus.Registry rather than the default global one, so multiple
// Registry values (one per test, or one per worker in embedded use) can
// coexist without a duplicate-registration panic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage identifies a pipeline stage for per-stage metrics.
type Stage string

const (
	StageCHA        Stage = "cha"
	StageDHA        Stage = "dha"
	StageEconomics  Stage = "economics"
	StageDecision   Stage = "decision"
	StageExplain    Stage = "explain"
	StageAudit      Stage = "audit"
)

// Result is the closed outcome label for a stage run.
type Result string

const (
	ResultSuccess Result = "success"
	ResultError   Result = "error"
	ResultSkipped Result = "skipped"
)

// Registry holds every metric the pipeline emits.
type Registry struct {
	reg *prometheus.Registry

	StageDuration   *prometheus.HistogramVec
	StageRuns       *prometheus.CounterVec
	StageErrors     *prometheus.CounterVec
	ClustersActive  prometheus.Gauge
	ClustersTotal   prometheus.Counter
	MonteCarloSamples prometheus.Histogram
	DecisionRobust  *prometheus.CounterVec
}

// NewRegistry builds and registers every metric on a fresh private
// registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dhcore_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage", "result"},
		),
		StageRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dhcore_stage_runs_total",
				Help: "Total number of pipeline stage runs",
			},
			[]string{"stage", "result"},
		),
		StageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dhcore_stage_errors_total",
				Help: "Total number of pipeline stage errors by error kind",
			},
			[]string{"stage", "error_kind"},
		),
		ClustersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dhcore_clusters_active",
				Help: "Number of clusters currently being processed",
			},
		),
		ClustersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dhcore_clusters_total",
				Help: "Total number of clusters processed",
			},
		),
		MonteCarloSamples: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dhcore_monte_carlo_samples",
				Help:    "Number of Monte Carlo samples drawn per cluster run",
				Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		DecisionRobust: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dhcore_decisions_total",
				Help: "Total number of decisions by choice and robustness",
			},
			[]string{"choice", "robust"},
		),
	}

	reg.MustRegister(
		r.StageDuration, r.StageRuns, r.StageErrors,
		r.ClustersActive, r.ClustersTotal, r.MonteCarloSamples, r.DecisionRobust,
	)
	return r
}

// Handler returns the HTTP handler serving this registry's metrics in
// the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// StageTimer times one stage invocation and records duration/run count
// on Stop.
type StageTimer struct {
	r     *Registry
	stage Stage
	start time.Time
}

// StartStage begins timing a pipeline stage.
func (r *Registry) StartStage(stage Stage) *StageTimer {
	return &StageTimer{r: r, stage: stage, start: time.Now()}
}

// Stop records the stage's duration and run count under result, and — if
// result is ResultError — an error-kind count.
func (t *StageTimer) Stop(result Result, errorKind string) {
	d := time.Since(t.start)
	t.r.StageDuration.WithLabelValues(string(t.stage), string(result)).Observe(d.Seconds())
	t.r.StageRuns.WithLabelValues(string(t.stage), string(result)).Inc()
	if result == ResultError && errorKind != "" {
		t.r.StageErrors.WithLabelValues(string(t.stage), errorKind).Inc()
	}
}

// RecordDecision records a decision's choice and robustness.
func (r *Registry) RecordDecision(choice string, robust bool) {
	r.DecisionRobust.WithLabelValues(choice, boolLabel(robust)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
