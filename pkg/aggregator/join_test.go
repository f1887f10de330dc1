package aggregator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hardikgo/crossdb/pkg/aggregator"
)

var ordersSource = aggregator.SourceResult{
	SourceID: "postgres_orders",
	Success:  true,
	Data: []map[string]any{
		{"customer_id": "1", "total": 100},
		{"customer_id": "2", "total": 50},
	},
}

var eventsSource = aggregator.SourceResult{
	SourceID: "mongo_events",
	Success:  true,
	Data: []map[string]any{
		{"customer_id": "1", "event": "click"},
		{"customer_id": "3", "event": "view"},
	},
}

var _ = Describe("Join", func() {
	opts := func(joinType aggregator.JoinType) aggregator.JoinOptions {
		return aggregator.JoinOptions{
			JoinFields: map[string]string{"postgres_orders": "customer_id", "mongo_events": "customer_id"},
			Type:       joinType,
		}
	}

	It("keeps only rows present on both sides for inner", func() {
		result := aggregator.Join([]aggregator.SourceResult{ordersSource, eventsSource}, opts(aggregator.JoinInner))

		Expect(result.TotalRows).To(Equal(1))
		Expect(result.Results[0]["postgres_orders_customer_id"]).To(Equal("1"))
		Expect(result.Results[0]["mongo_events_event"]).To(Equal("click"))
	})

	It("keeps every anchor row for left, with nil attachments when unmatched", func() {
		result := aggregator.Join([]aggregator.SourceResult{ordersSource, eventsSource}, opts(aggregator.JoinLeft))

		Expect(result.TotalRows).To(Equal(2))
		var unmatched map[string]any
		for _, row := range result.Results {
			if row["postgres_orders_customer_id"] == "2" {
				unmatched = row
			}
		}
		Expect(unmatched).NotTo(BeNil())
		Expect(unmatched).NotTo(HaveKey("mongo_events_event"))
	})

	It("completes right joins by emitting unmatched secondary-source rows", func() {
		result := aggregator.Join([]aggregator.SourceResult{ordersSource, eventsSource}, opts(aggregator.JoinRight))

		var sawUnmatchedEvent bool
		for _, row := range result.Results {
			if row["mongo_events_customer_id"] == "3" {
				sawUnmatchedEvent = true
				Expect(row).NotTo(HaveKey("postgres_orders_customer_id"))
			}
		}
		Expect(sawUnmatchedEvent).To(BeTrue(), "right join must surface secondary-only rows, unlike the unported source")
	})

	It("completes full joins with both unmatched anchor and unmatched secondary rows", func() {
		result := aggregator.Join([]aggregator.SourceResult{ordersSource, eventsSource}, opts(aggregator.JoinFull))

		var sawUnmatchedAnchor, sawUnmatchedSecondary bool
		for _, row := range result.Results {
			if row["postgres_orders_customer_id"] == "2" {
				sawUnmatchedAnchor = true
			}
			if row["mongo_events_customer_id"] == "3" {
				sawUnmatchedSecondary = true
			}
		}
		Expect(sawUnmatchedAnchor).To(BeTrue())
		Expect(sawUnmatchedSecondary).To(BeTrue())
	})

	It("joins on a composite key across multiple fields", func() {
		a := aggregator.SourceResult{SourceID: "a", Success: true, Data: []map[string]any{
			{"region": "us", "day": "1", "sales": 10},
		}}
		b := aggregator.SourceResult{SourceID: "b", Success: true, Data: []map[string]any{
			{"region": "us", "day": "1", "clicks": 5},
		}}
		result := aggregator.Join([]aggregator.SourceResult{a, b}, aggregator.JoinOptions{
			MultiFieldJoins: map[string][]string{"a": {"region", "day"}, "b": {"region", "day"}},
			Type:            aggregator.JoinInner,
		})

		Expect(result.TotalRows).To(Equal(1))
		Expect(result.Results[0]["a_sales"]).To(Equal(10))
		Expect(result.Results[0]["b_clicks"]).To(Equal(5))
	})
})
