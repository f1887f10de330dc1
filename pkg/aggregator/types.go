// Package aggregator is the Go rendering of the source's
// ResultAggregator (original_source/server/agent/db/orchestrator/result_aggregator.py):
// merge, join (inner/left/right/full), group-by aggregation, and
// chunked streaming aggregation over the heterogeneous row sets the
// executor collects from each backend. Cross-backend type coercion
// replaces the source's per-db-type converter registry (`type_coercions`)
// with a single shape-driven coercion, since a Go value carries no
// declared "this came from postgres" tag the way a Python dict entry
// does — DESIGN.md records this adaptation.
package aggregator

// JoinType selects which unmatched rows join_results keeps.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
)

// AggregationFunction is the closed set apply_aggregate_function supports.
type AggregationFunction string

const (
	AggCount  AggregationFunction = "count"
	AggSum    AggregationFunction = "sum"
	AggAvg    AggregationFunction = "avg"
	AggMin    AggregationFunction = "min"
	AggMax    AggregationFunction = "max"
	AggMedian AggregationFunction = "median"
	AggStddev AggregationFunction = "stddev"
)

// SourceResult is one operation's outcome, the unit merge_results and
// join_results both consume.
type SourceResult struct {
	SourceID string
	Success  bool
	Data     []map[string]any
	Error    string
}

// SourceError names which source produced an error, surfaced on a
// MergedResult/JoinedResult when any input failed.
type SourceError struct {
	SourceID string `json:"source_id"`
	Error    string `json:"error"`
}

// MergedResult is merge_results's return shape.
type MergedResult struct {
	Success           bool             `json:"success"`
	SourcesQueried    int              `json:"sources_queried"`
	SuccessfulSources int              `json:"successful_sources"`
	FailedSources     int              `json:"failed_sources"`
	TotalRows         int              `json:"total_rows"`
	Results           []map[string]any `json:"results"`
	Errors            []SourceError    `json:"errors,omitempty"`
}

// JoinOptions configures join_results. Exactly one of JoinFields or
// MultiFieldJoins should be set per source; a source present in
// neither is skipped, so none of its rows appear in the joined output
// (matching the source's per-source lookup-or-skip behavior).
type JoinOptions struct {
	JoinFields      map[string]string
	MultiFieldJoins map[string][]string
	Type            JoinType
	TypeMappings    map[string]map[string]string
	DBTypes         map[string]string
}

// JoinedResult is join_results's return shape.
type JoinedResult struct {
	Success         bool              `json:"success"`
	SourcesJoined   int               `json:"sources_joined"`
	JoinType        JoinType          `json:"join_type"`
	JoinFields      map[string]string `json:"join_fields,omitempty"`
	MultiFieldJoins map[string][]string `json:"multi_field_joins,omitempty"`
	TotalRows       int               `json:"total_rows"`
	Results         []map[string]any  `json:"results"`
}

// AggregationSpec is one entry of group_by_aggregation's aggregations list.
type AggregationSpec struct {
	Function    AggregationFunction
	Field       string
	OutputField string
}
