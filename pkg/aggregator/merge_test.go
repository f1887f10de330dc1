package aggregator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hardikgo/crossdb/pkg/aggregator"
)

var _ = Describe("Merge", func() {
	It("flattens rows from every successful source and tallies failures", func() {
		results := []aggregator.SourceResult{
			{SourceID: "postgres_orders", Success: true, Data: []map[string]any{{"id": 1}, {"id": 2}}},
			{SourceID: "mongo_events", Success: true, Data: []map[string]any{{"id": 3}}},
			{SourceID: "qdrant_vectors", Success: false, Error: "connection refused"},
		}

		merged := aggregator.Merge(results)

		Expect(merged.Success).To(BeTrue())
		Expect(merged.SourcesQueried).To(Equal(3))
		Expect(merged.SuccessfulSources).To(Equal(2))
		Expect(merged.FailedSources).To(Equal(1))
		Expect(merged.TotalRows).To(Equal(3))
		Expect(merged.Errors).To(HaveLen(1))
		Expect(merged.Errors[0].SourceID).To(Equal("qdrant_vectors"))

		for _, row := range merged.Results[:2] {
			Expect(row["source_id"]).To(Equal("postgres_orders"))
		}
		Expect(merged.Results[2]["source_id"]).To(Equal("mongo_events"))
	})

	It("reports failure when every source failed", func() {
		merged := aggregator.Merge([]aggregator.SourceResult{
			{SourceID: "a", Success: false, Error: "boom"},
		})

		Expect(merged.Success).To(BeFalse())
		Expect(merged.Results).To(BeEmpty())
	})
})
