// Package metrics provides Prometheus metrics for the correlator.
// It tracks alert ingestion, batch processing, and incident lifecycle
// to help identify bottlenecks and measure correlation latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "nxforge"
)

// Ingestion metrics.
var (
	// AlertsIngestedTotal counts alerts accepted into the buffer.
	AlertsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_ingested_total",
			Help:      "Total number of alerts ingested",
		},
		[]string{"source", "severity"},
	)

	// AlertsRejectedTotal counts alerts that failed validation or persistence.
	AlertsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_rejected_total",
			Help:      "Total number of alerts rejected during ingestion",
		},
		[]string{"reason"}, // reason: validation, store
	)

	// BufferDepth tracks the current number of buffered alerts.
	BufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_depth",
			Help:      "Current number of alerts waiting for the next batch",
		},
	)
)

// Batch processing metrics.
var (
	// BatchesProcessedTotal counts batch runs, including empty ones.
	BatchesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_processed_total",
			Help:      "Total number of batch processing runs",
		},
		[]string{"result"}, // result: empty, processed
	)

	// BatchSize tracks the number of alerts per non-empty batch.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of alerts per non-empty batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// BatchProcessingLatency measures time to process one batch.
	BatchProcessingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_latency_seconds",
			Help:      "Time to process a single batch in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// GroupsProcessedTotal counts alert groups by correlation outcome.
	GroupsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_processed_total",
			Help:      "Total number of alert groups processed",
		},
		[]string{"outcome"}, // outcome: created, merged, failed
	)
)

// Incident metrics.
var (
	// IncidentsCreatedTotal counts incidents created, labeled by severity.
	IncidentsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_created_total",
			Help:      "Total number of incidents created",
		},
		[]string{"severity"},
	)

	// IncidentsMergedTotal counts merge operations into existing incidents.
	IncidentsMergedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_merged_total",
			Help:      "Total number of alert groups merged into existing incidents",
		},
	)

	// IncidentStatusChangesTotal counts external status transitions.
	IncidentStatusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incident_status_changes_total",
			Help:      "Total number of incident status transitions",
		},
		[]string{"status"},
	)
)
