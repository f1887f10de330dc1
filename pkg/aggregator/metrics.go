package aggregator

import (
	"time"

	"github.com/hardikgo/crossdb/pkg/metrics"
)

// AggregationDurationObserve records op's wall-clock cost against the
// shared aggregation_duration_seconds histogram. A free function
// rather than a method keeps Merge/Join/GroupBy/StreamAggregate
// callable without threading an Aggregator value through code that has
// no other state to carry.
func AggregationDurationObserve(op string, d time.Duration) {
	metrics.AggregationDuration.WithLabelValues(op).Observe(d.Seconds())
}
