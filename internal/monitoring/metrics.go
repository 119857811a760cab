// Package monitoring exposes Prometheus metrics for pipeline runs.
package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for a pipeline instance.
//
// Each Metrics value carries its own registry so that independent
// pipelines (and tests) never collide on metric registration.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline lifecycle
	Running  prometheus.Gauge
	Runs     prometheus.Counter
	Failures prometheus.Counter

	// Item flow
	ItemsProcessed *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	StageErrors    *prometheus.CounterVec

	// Queues
	QueueDepth *prometheus.GaugeVec

	controlOnce sync.Once
	controlHist *prometheus.HistogramVec

	startTime time.Time
}

// NewMetrics creates a metrics collector backed by a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry:  registry,
		startTime: time.Now(),

		Running: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_running",
				Help: "Whether the pipeline is currently running (1) or not (0)",
			},
		),
		Runs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total number of pipeline runs started",
			},
		),
		Failures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_failures_total",
				Help: "Total number of runs terminated by a stage failure",
			},
		),

		ItemsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_items_processed_total",
				Help: "Total number of items processed per stage",
			},
			[]string{"stage"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Per-item processing duration per stage",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"stage"},
		),
		StageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_stage_errors_total",
				Help: "Total number of fatal stage errors",
			},
			[]string{"stage"},
		),

		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipeline_queue_depth",
				Help: "Current number of items buffered per queue",
			},
			[]string{"queue"},
		),
	}

	registry.MustRegister(collectors.NewGoCollector())
	return m
}

// Handler returns an HTTP handler serving this instance's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordProcessed records one processed item for a stage.
func (m *Metrics) RecordProcessed(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ItemsProcessed.WithLabelValues(stage).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordStageError records a fatal stage failure.
func (m *Metrics) RecordStageError(stage string) {
	if m == nil {
		return
	}
	m.StageErrors.WithLabelValues(stage).Inc()
	m.Failures.Inc()
}

// SetQueueDepth updates the depth gauge for a queue.
func (m *Metrics) SetQueueDepth(queueID, depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(strconv.Itoa(queueID)).Set(float64(depth))
}

// RunStarted marks a run as started.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.Runs.Inc()
	m.Running.Set(1)
}

// RunStopped marks the run as stopped.
func (m *Metrics) RunStopped() {
	if m == nil {
		return
	}
	m.Running.Set(0)
}
