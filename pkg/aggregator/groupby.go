package aggregator

import (
	"math"
	"sort"
	"time"

	goerrors "github.com/go-faster/errors"
)

// ApplyAggregateFunction is the Go rendering of apply_aggregate_function:
// it collects field's non-nil values across data and reduces them with
// fn. COUNT counts rows regardless of nullness (matching the source's
// `len(data)` for count); every other function skips rows where field
// is absent or nil, and returns nil on an empty value set rather than
// erroring, since "no numeric values to average" is a valid, if
// uninteresting, outcome.
func ApplyAggregateFunction(data []map[string]any, fn AggregationFunction, field string) (any, error) {
	if fn == AggCount {
		return len(data), nil
	}

	values := make([]float64, 0, len(data))
	for _, row := range data {
		v, ok := row[field]
		if !ok || v == nil {
			continue
		}
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		values = append(values, f)
	}
	if len(values) == 0 {
		return nil, nil
	}

	switch fn {
	case AggSum:
		return sum(values), nil
	case AggAvg:
		return sum(values) / float64(len(values)), nil
	case AggMin:
		return minOf(values), nil
	case AggMax:
		return maxOf(values), nil
	case AggMedian:
		return median(values), nil
	case AggStddev:
		return stddev(values), nil
	default:
		return nil, goerrors.Newf("aggregator: unsupported aggregation function %q", fn)
	}
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// median matches the source's even/odd midpoint-averaging behavior.
func median(v []float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddev is population standard deviation (variance over len, not
// len-1), matching the source's `variance ** 0.5` over the full sample.
func stddev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	mean := sum(v) / float64(len(v))
	var ss float64
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(v)))
}

// GroupBy is the Go rendering of group_by_aggregation: rows are bucketed
// by the composite value of groupByFields (a row missing any of them is
// skipped, matching the source), then each bucket's rows are reduced
// through every entry of aggregations. An AggregationSpec with no
// OutputField defaults to "{function}_{field}", same as the source.
func GroupBy(data []map[string]any, groupByFields []string, aggregations []AggregationSpec) ([]map[string]any, error) {
	start := time.Now()
	defer func() { AggregationDurationObserve("group_by", time.Since(start)) }()

	type bucket struct {
		keyValues map[string]any
		rows      []map[string]any
	}
	order := []string{}
	buckets := map[string]*bucket{}

	for _, row := range data {
		key, ok := compositeKey(row, groupByFields)
		if !ok {
			continue
		}
		b, exists := buckets[key]
		if !exists {
			keyValues := make(map[string]any, len(groupByFields))
			for _, f := range groupByFields {
				keyValues[f] = row[f]
			}
			b = &bucket{keyValues: keyValues}
			buckets[key] = b
			order = append(order, key)
		}
		b.rows = append(b.rows, row)
	}

	out := make([]map[string]any, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		result := make(map[string]any, len(groupByFields)+len(aggregations))
		for k, v := range b.keyValues {
			result[k] = v
		}
		for _, spec := range aggregations {
			outputField := spec.OutputField
			if outputField == "" {
				outputField = string(spec.Function) + "_" + spec.Field
			}
			value, err := ApplyAggregateFunction(b.rows, spec.Function, spec.Field)
			if err != nil {
				return nil, goerrors.Wrapf(err, "group_by: aggregating field %q", spec.Field)
			}
			result[outputField] = value
		}
		out = append(out, result)
	}

	return out, nil
}
