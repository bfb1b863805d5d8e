// Package middleware provides cross-cutting concerns for the grading
// and tournament engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of grading throughput,
// batch hygiene, and operation latency for the engine.
type PrometheusMetrics struct {
	gradingsPersisted *prometheus.CounterVec
	entriesDropped    prometheus.Counter
	executionLatency  *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	systemGauges      *prometheus.GaugeVec
	valueHistograms   *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and
// registers all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		gradingsPersisted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradings_persisted_total",
				Help: "Total number of grading records written to the store.",
			},
			[]string{"status"},
		),
		entriesDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "grading_entries_dropped_total",
				Help: "Total number of batch entries dropped for unresolvable submissions.",
			},
		),
		executionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_operation_duration_seconds",
				Help:    "Execution time of engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_operations_total",
				Help: "Total number of operations performed by the engine.",
			},
			[]string{"operation", "status"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "engine_system_state",
				Help: "Current system state values for the engine.",
			},
			[]string{"metric"},
		),
		valueHistograms: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_observed_values",
				Help:    "Observed value distributions, such as tournament field sizes.",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	status, ok := labels["status"]
	if !ok {
		status = "unknown"
	}
	pm.executionLatency.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by
// incrementing Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "gradings_persisted_total":
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.gradingsPersisted.WithLabelValues(status).Add(value)
	case "grading_entries_dropped_total":
		pm.entriesDropped.Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		operation, ok := labels["operation"]
		if !ok {
			operation = metric
		}
		pm.operationCounter.WithLabelValues(operation, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	pm.valueHistograms.WithLabelValues(metric).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
