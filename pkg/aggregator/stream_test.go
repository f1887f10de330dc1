package aggregator_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hardikgo/crossdb/pkg/aggregator"
)

var _ = Describe("StreamAggregate", func() {
	It("reduces chunks in lockstep until every source channel drains", func() {
		a := make(chan map[string]any)
		b := make(chan map[string]any)

		go func() {
			defer close(a)
			a <- map[string]any{"v": 1}
			a <- map[string]any{"v": 2}
		}()
		go func() {
			defer close(b)
			b <- map[string]any{"v": 10}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		out := aggregator.StreamAggregate(ctx, map[string]<-chan map[string]any{"a": a, "b": b}, 1,
			func(chunks map[string][]map[string]any) (map[string]any, bool) {
				row := map[string]any{}
				for source, chunk := range chunks {
					row[source] = len(chunk)
				}
				return row, true
			})

		var rows []map[string]any
		for row := range out {
			rows = append(rows, row)
		}

		Expect(rows).NotTo(BeEmpty())
		Expect(len(rows)).To(BeNumerically(">=", 1))
	})
})
