package planmodel_test

import (
	"testing"

	"github.com/hardikgo/crossdb/pkg/planmodel"
)

func TestOperationFor_AliasCoercion(t *testing.T) {
	source := "postgres_main"

	cases := []struct {
		name   string
		kind   planmodel.OperationKind
		params map[string]any
		check  func(t *testing.T, op *planmodel.Operation)
	}{
		{
			name: "sql accepts query alias for sql",
			kind: planmodel.KindSQL,
			params: map[string]any{
				"query":       "select 1",
				"bind_params": []any{1, 2},
			},
			check: func(t *testing.T, op *planmodel.Operation) {
				if op.SQL.SQL != "select 1" {
					t.Fatalf("expected query alias to populate SQL, got %q", op.SQL.SQL)
				}
				if len(op.SQL.Params) != 2 {
					t.Fatalf("expected bind_params alias to populate Params")
				}
			},
		},
		{
			name: "vector accepts top_k alias for limit",
			kind: planmodel.KindVector,
			params: map[string]any{
				"collection": "embeddings",
				"vector":     []any{0.1, 0.2},
				"top_k":      float64(7),
			},
			check: func(t *testing.T, op *planmodel.Operation) {
				if op.Vector.TopK != 7 {
					t.Fatalf("expected top_k alias to populate TopK, got %d", op.Vector.TopK)
				}
				if len(op.Vector.Vector) != 2 {
					t.Fatalf("expected vector payload to decode")
				}
			},
		},
		{
			name: "mongo supports pipeline shape",
			kind: planmodel.KindMongo,
			params: map[string]any{
				"collection": "orders",
				"pipeline":   []any{map[string]any{"$match": map[string]any{"status": "open"}}},
			},
			check: func(t *testing.T, op *planmodel.Operation) {
				if op.Mongo.Collection != "orders" {
					t.Fatalf("expected collection to be set")
				}
				if len(op.Mongo.Pipeline) != 1 {
					t.Fatalf("expected pipeline to decode to one stage")
				}
			},
		},
		{
			name: "mongo accepts query alias for filter",
			kind: planmodel.KindMongo,
			params: map[string]any{
				"collection": "orders",
				"query":      map[string]any{"status": "open"},
				"projection": map[string]any{"_id": 0},
			},
			check: func(t *testing.T, op *planmodel.Operation) {
				if op.Mongo.Filter == nil || op.Mongo.Filter["status"] != "open" {
					t.Fatalf("expected query alias to populate Filter, got %v", op.Mongo.Filter)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op, err := planmodel.OperationFor("op1", tc.kind, &source, tc.params, nil, planmodel.OperationMetadata{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, op)
		})
	}
}

func TestOperationFor_UnknownKindRejected(t *testing.T) {
	_, err := planmodel.OperationFor("op1", planmodel.OperationKind("graphql"), nil, map[string]any{}, nil, planmodel.OperationMetadata{})
	if err == nil {
		t.Fatalf("expected an error for an unknown operation kind")
	}
}
