// Package schema implements SchemaRegistryPort: the read-only schema
// and source-catalog surface the planner and executor depend on
// (spec.md §4.2).
package schema

import (
	"context"

	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// SearchResult is one hit from SchemaSearch — a scored, embeddable
// description of a table/collection/field relevant to a question.
type SearchResult struct {
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// ValidateSQLResult is the outcome of validating a SQL string against
// a source's known shape, without executing it.
type ValidateSQLResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// RegistryPort is the full contract of spec.md §4.2's eight
// capabilities. All methods except SchemaSearch are documented to be
// local cache reads; SchemaSearch is the only one that may be
// async/remote. Implementations must be safe for concurrent callers.
type RegistryPort interface {
	ListSources(ctx context.Context) ([]planmodel.DataSource, error)
	GetSource(ctx context.Context, id string) (*planmodel.DataSource, bool, error)
	ListTables(ctx context.Context, sourceID string) ([]string, error)
	GetTable(ctx context.Context, sourceID, name string) (*planmodel.TableDescriptor, bool, error)
	ValidateSQL(ctx context.Context, sourceID, sql string) (ValidateSQLResult, error)
	ValidateCollection(ctx context.Context, sourceID, name string) (bool, error)
	RecommendSources(ctx context.Context, question string) ([]string, error)
	SchemaSearch(ctx context.Context, question, kind string, topK int) ([]SearchResult, error)
}

// compile-time assertion that RegistryPort satisfies the narrower
// interface planmodel.Validate depends on.
var _ planmodel.SourceResolver = RegistryPort(nil)
