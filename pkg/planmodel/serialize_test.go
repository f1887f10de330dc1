package planmodel_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hardikgo/crossdb/pkg/planmodel"
)

func TestOperation_SerializeRoundTrip(t *testing.T) {
	source := "postgres_main"
	original, err := planmodel.OperationFor("op1", planmodel.KindSQL, &source, map[string]any{
		"sql":    "select * from orders where id = $1",
		"params": []any{float64(42)},
	}, []string{"op0"}, planmodel.OperationMetadata{OperationType: "lookup", Priority: 1})
	if err != nil {
		t.Fatalf("unexpected error building operation: %v", err)
	}
	original.Status = planmodel.StatusCompleted
	original.Result = map[string]any{"rows": float64(3)}
	original.ExecutionTime = 250 * time.Millisecond

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded planmodel.Operation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.ID != original.ID {
		t.Fatalf("id mismatch: got %q want %q", decoded.ID, original.ID)
	}
	if decoded.SourceID == nil || *decoded.SourceID != *original.SourceID {
		t.Fatalf("source_id mismatch")
	}
	if len(decoded.DependsOn) != 1 || decoded.DependsOn[0] != "op0" {
		t.Fatalf("depends_on mismatch: %v", decoded.DependsOn)
	}
	if decoded.Metadata.OperationType != "lookup" {
		t.Fatalf("metadata.operation_type mismatch")
	}
	if decoded.Kind != planmodel.KindSQL {
		t.Fatalf("expected kind to round-trip via db_type, got %q", decoded.Kind)
	}
	if decoded.SQL == nil || decoded.SQL.SQL != original.SQL.SQL {
		t.Fatalf("sql params did not round-trip")
	}
	if decoded.Status != planmodel.StatusCompleted {
		t.Fatalf("status did not round-trip")
	}
}

func TestOperation_UnmarshalToleratesUnknownFields(t *testing.T) {
	payload := []byte(`{
		"id": "op2",
		"source_id": "qdrant_main",
		"db_type": "qdrant",
		"depends_on": [],
		"metadata": {"operation_type": "search", "future_field": "ignored"},
		"params": {"collection": "embeddings", "vector": [0.1, 0.2], "limit": 5},
		"status": "PENDING",
		"result": null,
		"error": null,
		"execution_time": 0,
		"some_future_top_level_field": 123
	}`)

	var op planmodel.Operation
	if err := json.Unmarshal(payload, &op); err != nil {
		t.Fatalf("expected unknown fields to be tolerated, got error: %v", err)
	}
	if op.Kind != planmodel.KindVector {
		t.Fatalf("expected db_type=qdrant to decode to KindVector, got %q", op.Kind)
	}
	if op.Vector == nil || op.Vector.TopK != 5 {
		t.Fatalf("expected vector params to decode")
	}
}

func TestQueryPlan_SerializeRoundTrip(t *testing.T) {
	source := "mongodb_main"
	o, err := planmodel.OperationFor("op1", planmodel.KindMongo, &source, map[string]any{
		"collection": "orders",
		"filter":     map[string]any{"status": "open"},
	}, nil, planmodel.OperationMetadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plan := planmodel.NewPlan([]*planmodel.Operation{o}, planmodel.PlanMetadata{
		Question: "how many open orders?",
		Version:  "1.0",
	})

	data, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded planmodel.QueryPlan
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.ID != plan.ID {
		t.Fatalf("plan id mismatch")
	}
	if len(decoded.Operations) != 1 {
		t.Fatalf("expected one operation to round-trip, got %d", len(decoded.Operations))
	}
	if decoded.Operations[0].Mongo == nil || decoded.Operations[0].Mongo.Collection != "orders" {
		t.Fatalf("mongo params did not round-trip")
	}
	if decoded.Operations[0].Mongo.Filter == nil || decoded.Operations[0].Mongo.Filter["status"] != "open" {
		t.Fatalf("mongo filter did not round-trip through the wire \"query\" key, got %v", decoded.Operations[0].Mongo.Filter)
	}
}
