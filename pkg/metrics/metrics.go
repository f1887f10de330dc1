// Package metrics holds the prometheus instruments shared by
// pkg/executor and pkg/aggregator. It replaces the source's ad hoc
// `self.metrics` dict (`result_aggregator.py:_record_metric`) with
// real instruments, per SPEC_FULL.md's "carry an ambient stack" rule.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// OperationsStarted counts operation executions started, labeled
	// by backend kind.
	OperationsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crossdb",
			Subsystem: "executor",
			Name:      "operations_started_total",
			Help:      "Operations admitted into execution, labeled by backend kind.",
		},
		[]string{"kind"},
	)

	// OperationsCompleted counts operation executions that reached a
	// terminal state, labeled by backend kind and outcome.
	OperationsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crossdb",
			Subsystem: "executor",
			Name:      "operations_completed_total",
			Help:      "Operations that reached a terminal state, labeled by backend kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// OperationDuration observes per-operation execution latency.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crossdb",
			Subsystem: "executor",
			Name:      "operation_duration_seconds",
			Help:      "Per-operation execution latency in seconds, labeled by backend kind.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// JoinRowsPerSecond observes the aggregator's join throughput.
	JoinRowsPerSecond = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crossdb",
			Subsystem: "aggregator",
			Name:      "join_rows_per_second",
			Help:      "Joined rows produced per second of join wall-clock time.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		},
	)

	// JoinMemoryHighWater observes the peak in-memory row count held
	// by the join's hash indexes during a single Join call.
	JoinMemoryHighWater = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crossdb",
			Subsystem: "aggregator",
			Name:      "join_memory_high_water_rows",
			Help:      "Peak number of rows held in join hash indexes for a single join.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		},
	)

	// AggregationDuration observes per-batch aggregation latency
	// (group_by, merge, streaming chunk application).
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crossdb",
			Subsystem: "aggregator",
			Name:      "aggregation_duration_seconds",
			Help:      "Aggregation batch latency in seconds, labeled by operation kind (merge/join/group_by/stream_chunk).",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// ProgressEventsDropped counts events the progress bus discarded
	// because a subscriber's channel was full.
	ProgressEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crossdb",
			Subsystem: "progress",
			Name:      "events_dropped_total",
			Help:      "Progress events dropped due to a full subscriber channel.",
		},
	)
)

// Registry is a dedicated prometheus registry holding this module's
// instruments, so embedding applications can mount it without
// colliding with their own default registry.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		OperationsStarted,
		OperationsCompleted,
		OperationDuration,
		JoinRowsPerSecond,
		JoinMemoryHighWater,
		AggregationDuration,
		ProgressEventsDropped,
	)
}
