package aggregator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hardikgo/crossdb/pkg/aggregator"
)

var _ = Describe("ApplyAggregateFunction", func() {
	data := []map[string]any{
		{"amount": 10.0}, {"amount": 20.0}, {"amount": 30.0},
	}

	It("counts all rows regardless of nulls", func() {
		v, err := aggregator.ApplyAggregateFunction([]map[string]any{{"amount": nil}, {"amount": 1}}, aggregator.AggCount, "amount")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(2))
	})

	It("sums, averages, and finds min/max", func() {
		sum, _ := aggregator.ApplyAggregateFunction(data, aggregator.AggSum, "amount")
		avg, _ := aggregator.ApplyAggregateFunction(data, aggregator.AggAvg, "amount")
		min, _ := aggregator.ApplyAggregateFunction(data, aggregator.AggMin, "amount")
		max, _ := aggregator.ApplyAggregateFunction(data, aggregator.AggMax, "amount")

		Expect(sum).To(Equal(60.0))
		Expect(avg).To(Equal(20.0))
		Expect(min).To(Equal(10.0))
		Expect(max).To(Equal(30.0))
	})

	It("computes population standard deviation over len, not len-1", func() {
		v, err := aggregator.ApplyAggregateFunction(data, aggregator.AggStddev, "amount")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNumerically("~", 8.16496, 1e-4))
	})

	It("averages the two middle values for an even-sized median", func() {
		evenData := []map[string]any{
			{"amount": 10.0}, {"amount": 20.0}, {"amount": 30.0}, {"amount": 40.0},
		}
		v, _ := aggregator.ApplyAggregateFunction(evenData, aggregator.AggMedian, "amount")
		Expect(v).To(Equal(25.0))
	})

	It("returns nil rather than erroring when no values are present", func() {
		v, err := aggregator.ApplyAggregateFunction(nil, aggregator.AggSum, "amount")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNil())
	})

	It("errors on an unsupported function", func() {
		_, err := aggregator.ApplyAggregateFunction(data, aggregator.AggregationFunction("bogus"), "amount")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("GroupBy", func() {
	data := []map[string]any{
		{"region": "us", "amount": 10.0},
		{"region": "us", "amount": 20.0},
		{"region": "eu", "amount": 5.0},
	}

	It("groups by field and applies each aggregation spec", func() {
		out, err := aggregator.GroupBy(data, []string{"region"}, []aggregator.AggregationSpec{
			{Function: aggregator.AggSum, Field: "amount"},
			{Function: aggregator.AggCount, Field: "amount", OutputField: "n"},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(2))

		var us map[string]any
		for _, row := range out {
			if row["region"] == "us" {
				us = row
			}
		}
		Expect(us["sum_amount"]).To(Equal(30.0))
		Expect(us["n"]).To(Equal(2))
	})

	It("skips rows missing a group-by field", func() {
		out, err := aggregator.GroupBy([]map[string]any{{"amount": 1.0}}, []string{"region"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())
	})
})
