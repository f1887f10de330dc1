package aggregator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hardikgo/crossdb/pkg/aggregator"
)

var _ = Describe("Join key coercion", func() {
	It("matches a numeric string join key against a numeric join key", func() {
		left := aggregator.SourceResult{SourceID: "postgres_orders", Success: true, Data: []map[string]any{
			{"customer_id": 42, "total": 9},
		}}
		right := aggregator.SourceResult{SourceID: "mongo_events", Success: true, Data: []map[string]any{
			{"customer_id": "42", "event": "click"},
		}}
		result := aggregator.Join([]aggregator.SourceResult{left, right}, aggregator.JoinOptions{
			JoinFields: map[string]string{"postgres_orders": "customer_id", "mongo_events": "customer_id"},
			Type:       aggregator.JoinInner,
		})

		Expect(result.TotalRows).To(Equal(1))
		Expect(result.Results[0]["mongo_events_event"]).To(Equal("click"))
	})

	It("matches a formatted timestamp string against a differently formatted one", func() {
		left := aggregator.SourceResult{SourceID: "a", Success: true, Data: []map[string]any{
			{"seen_at": "2026-01-15T10:00:00Z", "v": 1},
		}}
		right := aggregator.SourceResult{SourceID: "b", Success: true, Data: []map[string]any{
			{"seen_at": "2026-01-15 10:00:00", "v": 2},
		}}
		result := aggregator.Join([]aggregator.SourceResult{left, right}, aggregator.JoinOptions{
			JoinFields: map[string]string{"a": "seen_at", "b": "seen_at"},
			Type:       aggregator.JoinInner,
		})

		Expect(result.TotalRows).To(Equal(1))
		Expect(result.Results[0]["b_v"]).To(Equal(2))
	})

	It("does not mistake a Mongo ObjectId for a timestamp or number", func() {
		left := aggregator.SourceResult{SourceID: "a", Success: true, Data: []map[string]any{
			{"doc_id": "507f1f77bcf86cd799439011", "v": 1},
		}}
		right := aggregator.SourceResult{SourceID: "b", Success: true, Data: []map[string]any{
			{"doc_id": "507f1f77bcf86cd799439011", "v": 2},
			{"doc_id": "000000000000000000000000", "v": 3},
		}}
		result := aggregator.Join([]aggregator.SourceResult{left, right}, aggregator.JoinOptions{
			JoinFields: map[string]string{"a": "doc_id", "b": "doc_id"},
			Type:       aggregator.JoinInner,
		})

		Expect(result.TotalRows).To(Equal(1))
		Expect(result.Results[0]["b_v"]).To(Equal(2))
	})
})
