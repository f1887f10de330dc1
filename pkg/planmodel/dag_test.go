package planmodel_test

import (
	"context"

	"github.com/hardikgo/crossdb/pkg/planmodel"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func op(id string, dependsOn ...string) *planmodel.Operation {
	built, err := planmodel.OperationFor(id, planmodel.KindGeneric, nil, map[string]any{}, dependsOn, planmodel.OperationMetadata{})
	Expect(err).NotTo(HaveOccurred())
	return built
}

var _ = Describe("OperationDAG", func() {
	Describe("cycle detection and plan validity", func() {
		It("reports no cycle and a valid plan for a DAG", func() {
			plan := planmodel.NewPlan([]*planmodel.Operation{
				op("a"),
				op("b", "a"),
				op("c", "b"),
			}, planmodel.PlanMetadata{Version: "1.0"})

			dag := planmodel.BuildDAG(plan)
			cyclic, _ := dag.HasCycle()
			Expect(cyclic).To(BeFalse())

			report := plan.Validate(context.Background(), nil)
			Expect(report.Valid).To(BeTrue())
		})

		It("reports a cycle and an invalid plan for A->B->C->A", func() {
			plan := planmodel.NewPlan([]*planmodel.Operation{
				op("a", "c"),
				op("b", "a"),
				op("c", "b"),
			}, planmodel.PlanMetadata{Version: "1.0"})

			dag := planmodel.BuildDAG(plan)
			cyclic, path := dag.HasCycle()
			Expect(cyclic).To(BeTrue())
			Expect(path).NotTo(BeEmpty())

			report := plan.Validate(context.Background(), nil)
			Expect(report.Valid).To(BeFalse())
			Expect(report.Errors).To(ContainElement(ContainSubstring("cycle:")))
		})
	})

	Describe("topological order", func() {
		It("respects every depends_on edge", func() {
			plan := planmodel.NewPlan([]*planmodel.Operation{
				op("c", "a", "b"),
				op("a"),
				op("b", "a"),
			}, planmodel.PlanMetadata{Version: "1.0"})

			dag := planmodel.BuildDAG(plan)
			order, err := dag.TopologicalOrder()
			Expect(err).NotTo(HaveOccurred())

			pos := make(map[string]int, len(order))
			for i, id := range order {
				pos[id] = i
			}
			for _, o := range plan.Operations {
				for _, dep := range o.DependsOn {
					Expect(pos[dep]).To(BeNumerically("<", pos[o.ID]))
				}
			}
		})

		It("errors when the graph is cyclic", func() {
			plan := planmodel.NewPlan([]*planmodel.Operation{
				op("a", "b"),
				op("b", "a"),
			}, planmodel.PlanMetadata{Version: "1.0"})

			dag := planmodel.BuildDAG(plan)
			_, err := dag.TopologicalOrder()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("parallel layers", func() {
		It("groups independent operations into the same layer", func() {
			plan := planmodel.NewPlan([]*planmodel.Operation{
				op("a"),
				op("b"),
				op("c", "a", "b"),
			}, planmodel.PlanMetadata{Version: "1.0"})

			dag := planmodel.BuildDAG(plan)
			layers, err := dag.ParallelLayers()
			Expect(err).NotTo(HaveOccurred())
			Expect(layers).To(HaveLen(2))
			Expect(layers[0]).To(ConsistOf("a", "b"))
			Expect(layers[1]).To(ConsistOf("c"))
		})
	})

	Describe("reference integrity", func() {
		It("flags depends_on edges to unknown operations", func() {
			plan := planmodel.NewPlan([]*planmodel.Operation{
				op("a", "ghost"),
			}, planmodel.PlanMetadata{Version: "1.0"})

			report := plan.Validate(context.Background(), nil)
			Expect(report.Valid).To(BeFalse())
			Expect(report.Errors).To(ContainElement(ContainSubstring("unknown operation")))
		})
	})
})
