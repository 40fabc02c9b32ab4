// Package metrics records ingestion and delta metrics in a Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/huangsam/covdelta/schema"
)

const namespace = "covdelta"

// Ingest statuses.
const (
	StatusOK     = "ok"
	StatusCached = "cached"
	StatusError  = "error"
)

// Recorder owns an independent registry so repeated construction never conflicts.
// All methods are safe on a nil *Recorder, which records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	reportsIngested *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	mergeConflicts  prometheus.Counter
	buildsProcessed *prometheus.CounterVec
	coverage        *prometheus.GaugeVec
	delta           *prometheus.GaugeVec
}

// New creates a recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		reportsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_ingested_total",
			Help:      "Raw coverage reports normalized, by adapter and status.",
		}, []string{"adapter", "status"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time spent normalizing one report.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"adapter"}),
		mergeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_conflicts_total",
			Help:      "Builds whose reports could not be merged.",
		}),
		buildsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_processed_total",
			Help:      "Builds processed, by final lifecycle state.",
		}, []string{"state"}),
		coverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_percent",
			Help:      "Whole-tree coverage of the last processed build.",
		}, []string{"job", "element"}),
		delta: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_delta_points",
			Help:      "Coverage delta against the reference build in percentage points.",
		}, []string{"job", "element"}),
	}
	r.registry.MustRegister(
		r.reportsIngested,
		r.ingestDuration,
		r.mergeConflicts,
		r.buildsProcessed,
		r.coverage,
		r.delta,
	)
	return r
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveIngest records one normalized report.
func (r *Recorder) ObserveIngest(adapter, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.reportsIngested.WithLabelValues(adapter, status).Inc()
	if status != StatusCached {
		r.ingestDuration.WithLabelValues(adapter).Observe(elapsed.Seconds())
	}
}

// IncMergeConflict counts a build that failed to aggregate.
func (r *Recorder) IncMergeConflict() {
	if r == nil {
		return
	}
	r.mergeConflicts.Inc()
}

// ObserveResult records the coverage and deltas of a finalized result.
func (r *Recorder) ObserveResult(job string, result *schema.Result) {
	if r == nil || result == nil {
		return
	}
	r.buildsProcessed.WithLabelValues(string(result.State())).Inc()
	for _, e := range schema.Elements() {
		if pct, ok := result.CoveragePercent(e); ok {
			r.coverage.WithLabelValues(job, e.String()).Set(pct)
		}
		if d, ok := result.Delta(e); ok {
			r.delta.WithLabelValues(job, e.String()).Set(float64(d))
		}
	}
}

// WriteTextfile writes the current metrics in the text exposition format, for
// node_exporter's textfile collector. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
