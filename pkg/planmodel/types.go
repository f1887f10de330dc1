// Package planmodel implements the plan data model and DAG algorithms
// (spec.md §3, §4.1, §9): operation variants, QueryPlan, validation,
// serialization, and cycle/topological/layering analysis.
package planmodel

import "time"

// DataSource identifies one backend the orchestrator can target.
type DataSource struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	ConnectionURI string `json:"connection_uri,omitempty"`
}

// FieldMeta describes one field of a TableDescriptor. VectorDim and
// VectorMetric are only meaningful for vector collections; they are
// flattened onto the common struct rather than modeled as a
// kind-specific extension map, since Go has no structural row
// polymorphism (see SPEC_FULL.md §4).
type FieldMeta struct {
	DataType     string `json:"data_type"`
	PrimaryKey   bool   `json:"primary_key"`
	Nullable     bool   `json:"nullable"`
	Indexed      bool   `json:"indexed"`
	VectorDim    int    `json:"vector_dim,omitempty"`
	VectorMetric string `json:"vector_metric,omitempty"`
}

// TableDescriptor is one queryable object within a DataSource.
type TableDescriptor struct {
	SourceID string               `json:"source_id"`
	Name     string               `json:"name"`
	Fields   map[string]FieldMeta `json:"fields"`
}

// OperationStatus mirrors spec.md §3's per-operation state machine.
type OperationStatus string

const (
	StatusPending   OperationStatus = "PENDING"
	StatusRunning   OperationStatus = "RUNNING"
	StatusCompleted OperationStatus = "COMPLETED"
	StatusFailed    OperationStatus = "FAILED"
)

// OperationKind is the build-time-closed set of operation variants
// (spec.md §3, §9 REDESIGN FLAGS — dynamic variants are rejected).
type OperationKind string

const (
	KindSQL       OperationKind = "sql"
	KindMongo     OperationKind = "mongo"
	KindVector    OperationKind = "vector"
	KindMessaging OperationKind = "messaging"
	KindCommerce  OperationKind = "commerce"
	KindGeneric   OperationKind = "generic"
)

// Complexity is the admission-control weight class from spec.md §4.5.
type Complexity int

const (
	ComplexitySimple  Complexity = 1
	ComplexityMedium  Complexity = 2
	ComplexityComplex Complexity = 3
	ComplexityHeavy   Complexity = 4
)

// SQLParams is the parameter payload for KindSQL operations.
type SQLParams struct {
	SQL    string `json:"query"`
	Params []any  `json:"params"`
}

// MongoParams is the parameter payload for KindMongo operations.
// Exactly one of Pipeline or (Filter/Projection) is populated.
type MongoParams struct {
	Collection string         `json:"collection"`
	Pipeline   []map[string]any `json:"pipeline,omitempty"`
	Filter     map[string]any   `json:"filter,omitempty"`
	Projection map[string]any   `json:"projection,omitempty"`
}

// VectorParams is the parameter payload for KindVector operations.
type VectorParams struct {
	Collection string         `json:"collection"`
	Vector     []float32      `json:"vector"`
	Filter     map[string]any `json:"filter,omitempty"`
	TopK       int            `json:"limit"`
}

// MessagingParams is the parameter payload for KindMessaging operations.
type MessagingParams struct {
	Channel   string         `json:"channel,omitempty"`
	Query     string         `json:"query,omitempty"`
	TimeRange map[string]any `json:"time_range,omitempty"`
	Limit     int            `json:"limit"`
}

// CommerceParams is the parameter payload for KindCommerce operations.
type CommerceParams struct {
	Endpoint    string         `json:"endpoint"`
	QueryParams map[string]any `json:"query_params,omitempty"`
	Method      string         `json:"method"`
	Limit       int            `json:"limit"`
}

// OperationMetadata carries the operation_type label, a cost estimate,
// and a scheduling priority (spec.md §3).
type OperationMetadata struct {
	OperationType  string  `json:"operation_type,omitempty"`
	EstimatedCost  float64 `json:"estimated_cost,omitempty"`
	Priority       int     `json:"priority,omitempty"`
	Complexity     Complexity `json:"complexity,omitempty"`
}

// Operation is a single unit of backend work. Exactly one of the
// variant payload pointers is non-nil, selected by Kind — the
// tagged-struct rendering of the source's per-kind subclasses
// (see SPEC_FULL.md §4, DESIGN NOTES).
type Operation struct {
	ID         string            `json:"id"`
	Kind       OperationKind     `json:"-"`
	SourceID   *string           `json:"source_id"`
	DependsOn  []string          `json:"depends_on"`
	Metadata   OperationMetadata `json:"metadata"`

	SQL       *SQLParams       `json:"-"`
	Mongo     *MongoParams     `json:"-"`
	Vector    *VectorParams    `json:"-"`
	Messaging *MessagingParams `json:"-"`
	Commerce  *CommerceParams  `json:"-"`
	Generic   map[string]any   `json:"-"`

	// Mutable execution state, owned by whichever executor goroutine
	// currently holds this operation's slot (spec.md §3 Lifecycle).
	Status        OperationStatus `json:"status"`
	Result        any             `json:"result"`
	Error         string          `json:"error"`
	ExecutionTime time.Duration   `json:"-"`
}

// PlanMetadata carries plan-level bookkeeping (spec.md §3).
type PlanMetadata struct {
	Question          string    `json:"question,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	Version           string    `json:"version"`
	OutputOperationID *string   `json:"output_operation_id,omitempty"`
	OptimizationNotes []string  `json:"optimization_notes,omitempty"`
}

// QueryPlan is an ordered sequence of Operations plus plan metadata.
type QueryPlan struct {
	ID         string        `json:"id"`
	Operations []*Operation  `json:"operations"`
	Metadata   PlanMetadata  `json:"metadata"`
}

// OpResult is the per-operation outcome recorded in an
// ExecutionEnvelope (spec.md §3).
type OpResult struct {
	Status        OperationStatus `json:"status"`
	Result        any             `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
	ExecutionTime float64         `json:"execution_time"`
}

// ExecutionSummary is the aggregate outcome of one executor run.
type ExecutionSummary struct {
	TotalOperations      int             `json:"total_operations"`
	SuccessfulOperations int             `json:"successful_operations"`
	FailedOperations     int             `json:"failed_operations"`
	ExecutionTimeSeconds float64         `json:"execution_time_seconds"`
	FailedOperationID    *string         `json:"failed_operation_id,omitempty"`
	OperationDetails     map[string]OpResult `json:"operation_details"`
}

// ExecutionEnvelope is the top-level structured response of the facade
// (spec.md §3, §6).
type ExecutionEnvelope struct {
	Success    bool             `json:"success"`
	Plan       *QueryPlan       `json:"plan,omitempty"`
	Validation ValidationReport `json:"validation"`
	Execution  *ExecutionResult `json:"execution,omitempty"`
}

// ExecutionResult is the "execution" section of the envelope.
type ExecutionResult struct {
	Success          bool             `json:"success"`
	ExecutionSummary ExecutionSummary `json:"execution_summary"`
	Result           any              `json:"result"`
}

// ValidationReport is the outcome of (*QueryPlan).Validate.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
