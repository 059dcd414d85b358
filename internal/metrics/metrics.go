// Package metrics provides Prometheus metrics for the validator engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the validator's Prometheus collectors on a private
// registry, keeping default Go runtime collectors out of the scrape.
// A nil *Metrics is valid and turns every method into a no-op.
type Metrics struct {
	registry *prometheus.Registry

	predictionsIngested *prometheus.CounterVec
	predictionsRejected *prometheus.CounterVec
	responsesSkipped    prometheus.Counter
	allocationCycles    *prometheus.CounterVec
	allocationDuration  prometheus.Histogram
	activeMiners        prometheus.Gauge
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		predictionsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecast",
			Subsystem: "ingest",
			Name:      "predictions_ingested_total",
			Help:      "Predictions written to per-miner tables, by conflict policy.",
		}, []string{"policy"}),
		predictionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecast",
			Subsystem: "ingest",
			Name:      "predictions_rejected_total",
			Help:      "Predictions dropped during ingestion, by reason.",
		}, []string{"reason"}),
		responsesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "homecast",
			Subsystem: "ingest",
			Name:      "responses_skipped_total",
			Help:      "Whole responses skipped during ingestion.",
		}),
		allocationCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecast",
			Subsystem: "weights",
			Name:      "allocation_cycles_total",
			Help:      "Weight allocation cycles, by outcome.",
		}, []string{"outcome"}),
		allocationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "homecast",
			Subsystem: "weights",
			Name:      "allocation_duration_seconds",
			Help:      "Wall time of a full weight allocation cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		activeMiners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "homecast",
			Subsystem: "ingest",
			Name:      "active_miners",
			Help:      "Miners seen in the most recent ingestion cycle.",
		}),
	}
}

// Handler returns an HTTP handler serving the private registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PredictionsIngested counts predictions written under a policy.
func (m *Metrics) PredictionsIngested(policy string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.predictionsIngested.WithLabelValues(policy).Add(float64(n))
}

// PredictionsRejected counts dropped predictions by reason.
func (m *Metrics) PredictionsRejected(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.predictionsRejected.WithLabelValues(reason).Add(float64(n))
}

// ResponseSkipped counts a whole response being skipped.
func (m *Metrics) ResponseSkipped() {
	if m == nil {
		return
	}
	m.responsesSkipped.Inc()
}

// AllocationCycle records the outcome of an allocation cycle.
func (m *Metrics) AllocationCycle(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.allocationCycles.WithLabelValues(outcome).Inc()
	m.allocationDuration.Observe(elapsed.Seconds())
}

// SetActiveMiners records the size of the active miner set.
func (m *Metrics) SetActiveMiners(n int) {
	if m == nil {
		return
	}
	m.activeMiners.Set(float64(n))
}
