package planmodel

import (
	"fmt"

	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/google/uuid"
)

// NewPlan constructs a QueryPlan from a set of already-built operations
// plus plan metadata, assigning a fresh plan ID (spec.md §4.1:
// `new_plan(operations, metadata) -> QueryPlan`).
func NewPlan(operations []*Operation, metadata PlanMetadata) *QueryPlan {
	return &QueryPlan{ID: uuid.NewString(), Operations: operations, Metadata: metadata}
}

// asString, asInt, asFloat32Slice, asMap, asMapSlice, asAnySlice are small
// permissive coercions used while reading the untyped params map the
// planner hands to OperationFor — mirroring the source's kwargs-style
// construction (`plans/operations.py`) without Python's duck typing.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func asFloat32Slice(v any) []float32 {
	switch vec := v.(type) {
	case []float32:
		return vec
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out
	case []any:
		out := make([]float32, 0, len(vec))
		for _, e := range vec {
			switch f := e.(type) {
			case float64:
				out = append(out, float32(f))
			case float32:
				out = append(out, f)
			}
		}
		return out
	default:
		return nil
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asMapSlice(v any) []map[string]any {
	switch s := v.(type) {
	case []map[string]any:
		return s
	case []any:
		out := make([]map[string]any, 0, len(s))
		for _, e := range s {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func asAnySlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	default:
		return nil
	}
}

func firstOf(params map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// OperationFor dispatches on kind to build the correctly-typed variant
// payload, coercing the common parameter aliases of spec.md §3 ("query"/
// "sql", "top_k"/"limit", "bind_params"/"params"). Unknown kinds are
// rejected with a validation error — Go's closed OperationKind enum
// replaces the source's runtime dynamic-class synthesis
// (`initialize_operations`) per the REDESIGN FLAG.
func OperationFor(id string, kind OperationKind, sourceID *string, params map[string]any, dependsOn []string, metadata OperationMetadata) (*Operation, error) {
	op := &Operation{
		ID:        id,
		Kind:      kind,
		SourceID:  sourceID,
		DependsOn: dependsOn,
		Metadata:  metadata,
		Status:    StatusPending,
	}

	switch kind {
	case KindSQL:
		sqlText, _ := firstOf(params, "sql", "query")
		bind, _ := firstOf(params, "bind_params", "params")
		op.SQL = &SQLParams{SQL: asString(sqlText), Params: asAnySlice(bind)}

	case KindMongo:
		collection, _ := params["collection"]
		mp := &MongoParams{Collection: asString(collection)}
		if pipe, ok := params["pipeline"]; ok {
			mp.Pipeline = asMapSlice(pipe)
		}
		if filter, ok := firstOf(params, "filter", "query"); ok {
			mp.Filter = asMap(filter)
		}
		if proj, ok := params["projection"]; ok {
			mp.Projection = asMap(proj)
		}
		op.Mongo = mp

	case KindVector:
		collection := params["collection"]
		vec, _ := firstOf(params, "vector")
		limit, _ := firstOf(params, "top_k", "limit")
		vp := &VectorParams{
			Collection: asString(collection),
			Vector:     asFloat32Slice(vec),
			TopK:       asInt(limit, 10),
		}
		if filter, ok := params["filter"]; ok {
			vp.Filter = asMap(filter)
		}
		op.Vector = vp

	case KindMessaging:
		limit, _ := firstOf(params, "limit")
		mp := &MessagingParams{
			Channel: asString(params["channel"]),
			Query:   asString(params["query"]),
			Limit:   asInt(limit, 100),
		}
		if tr, ok := params["time_range"]; ok {
			mp.TimeRange = asMap(tr)
		}
		op.Messaging = mp

	case KindCommerce:
		limit, _ := firstOf(params, "limit")
		op.Commerce = &CommerceParams{
			Endpoint:    asString(params["endpoint"]),
			QueryParams: asMap(params["query_params"]),
			Method:      asString(params["method"]),
			Limit:       asInt(limit, 100),
		}

	case KindGeneric:
		op.Generic = params

	default:
		return nil, appErrors.NewValidationError(fmt.Sprintf("unknown operation kind %q", kind))
	}

	return op, nil
}
