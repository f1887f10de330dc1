package facade_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hardikgo/crossdb/internal/config"
	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/adapter"
	"github.com/hardikgo/crossdb/pkg/adapter/faketest"
	"github.com/hardikgo/crossdb/pkg/aggregator"
	"github.com/hardikgo/crossdb/pkg/executor"
	"github.com/hardikgo/crossdb/pkg/facade"
	"github.com/hardikgo/crossdb/pkg/planmodel"
	"github.com/hardikgo/crossdb/pkg/progress"
)

// scriptedPlanner returns a fixed plan/report, standing in for
// planning.Pipeline so these tests exercise the facade's own wiring
// without requiring a live LLM or schema registry.
type scriptedPlanner struct {
	plan   *planmodel.QueryPlan
	report planmodel.ValidationReport
}

func (s scriptedPlanner) Plan(ctx context.Context, question string, optimize bool) (*planmodel.QueryPlan, planmodel.ValidationReport) {
	return s.plan, s.report
}

func sqlOp(id, sourceID string) *planmodel.Operation {
	op, err := planmodel.OperationFor(id, planmodel.KindSQL, &sourceID, map[string]any{"sql": "SELECT 1"}, nil, planmodel.OperationMetadata{Complexity: planmodel.ComplexitySimple})
	Expect(err).NotTo(HaveOccurred())
	return op
}

var _ = Describe("Facade", func() {
	It("runs a valid plan to completion and returns a merged result", func() {
		a := sqlOp("a", "postgres_orders")
		plan := &planmodel.QueryPlan{ID: "p1", Operations: []*planmodel.Operation{a}, Metadata: planmodel.PlanMetadata{Question: "how many orders?"}}

		factory := adapter.NewFactory()
		factory.Register("postgres_orders", func() (adapter.Port, error) {
			return faketest.NewAdapter([]map[string]any{{"count": 42}}), nil
		})

		ex := executor.New(config.DefaultConfig().Executor, factory, progress.NewBus(), nil)
		f := facade.New(scriptedPlanner{plan: plan, report: planmodel.ValidationReport{Valid: true}}, ex, progress.NewBus(), nil)

		envelope := f.Run(context.Background(), "how many orders?", facade.RunOptions{})

		Expect(envelope.Success).To(BeTrue())
		Expect(envelope.Execution).NotTo(BeNil())
		Expect(envelope.Execution.ExecutionSummary.SuccessfulOperations).To(Equal(1))

		merged, ok := envelope.Execution.Result.(aggregator.MergedResult)
		Expect(ok).To(BeTrue())
		Expect(merged.TotalRows).To(Equal(1))
	})

	It("short-circuits with the validation report when planning fails", func() {
		f := facade.New(scriptedPlanner{plan: nil, report: planmodel.ValidationReport{Valid: false, Errors: []string{"no candidates"}}}, nil, progress.NewBus(), nil)

		envelope := f.Run(context.Background(), "gibberish", facade.RunOptions{})

		Expect(envelope.Success).To(BeFalse())
		Expect(envelope.Validation.Errors).To(ContainElement("no candidates"))
		Expect(envelope.Execution).To(BeNil())
	})

	It("stops after validation and never executes when DryRun is set", func() {
		a := sqlOp("a", "postgres_orders")
		plan := &planmodel.QueryPlan{ID: "p3", Operations: []*planmodel.Operation{a}}

		factory := adapter.NewFactory()
		factory.Register("postgres_orders", func() (adapter.Port, error) {
			return faketest.NewAdapter(nil), nil
		})

		ex := executor.New(config.DefaultConfig().Executor, factory, progress.NewBus(), nil)
		f := facade.New(scriptedPlanner{plan: plan, report: planmodel.ValidationReport{Valid: true}}, ex, progress.NewBus(), nil)

		envelope := f.Run(context.Background(), "dry run test", facade.RunOptions{DryRun: true})

		Expect(envelope.Success).To(BeTrue())
		Expect(envelope.Plan).To(Equal(plan))
		Expect(envelope.Execution).To(BeNil())
		Expect(a.Status).To(Equal(planmodel.StatusPending))
	})

	It("joins results instead of merging when JoinOptions is supplied", func() {
		a := sqlOp("a", "postgres_orders")
		b := sqlOp("b", "mongo_events")
		plan := &planmodel.QueryPlan{ID: "p2", Operations: []*planmodel.Operation{a, b}}

		factory := adapter.NewFactory()
		factory.Register("postgres_orders", func() (adapter.Port, error) {
			return faketest.NewAdapter([]map[string]any{{"customer_id": "1"}}), nil
		})
		factory.Register("mongo_events", func() (adapter.Port, error) {
			return faketest.NewAdapter([]map[string]any{{"customer_id": "1", "event": "click"}}), nil
		})

		ex := executor.New(config.DefaultConfig().Executor, factory, progress.NewBus(), nil)
		f := facade.New(scriptedPlanner{plan: plan, report: planmodel.ValidationReport{Valid: true}}, ex, progress.NewBus(), nil)

		envelope := f.Run(context.Background(), "join test", facade.RunOptions{
			Join: &aggregator.JoinOptions{
				JoinFields: map[string]string{"postgres_orders": "customer_id", "mongo_events": "customer_id"},
				Type:       aggregator.JoinInner,
			},
		})

		Expect(envelope.Success).To(BeTrue())
		joined, ok := envelope.Execution.Result.(aggregator.JoinedResult)
		Expect(ok).To(BeTrue())
		Expect(joined.TotalRows).To(Equal(1))
	})

	It("binds the result and success to output_operation_id even when an unrelated op fails", func() {
		good := sqlOp("good", "postgres_orders")
		bad := sqlOp("bad", "mongo_events")
		outputID := "good"
		plan := &planmodel.QueryPlan{
			ID:         "p4",
			Operations: []*planmodel.Operation{good, bad},
			Metadata:   planmodel.PlanMetadata{OutputOperationID: &outputID},
		}

		factory := adapter.NewFactory()
		factory.Register("postgres_orders", func() (adapter.Port, error) {
			return faketest.NewAdapter([]map[string]any{{"count": 1}}), nil
		})
		factory.Register("mongo_events", func() (adapter.Port, error) {
			return &faketest.Adapter{Err: appErrors.New(appErrors.ErrorTypeInternal, "boom")}, nil
		})

		ex := executor.New(config.DefaultConfig().Executor, factory, progress.NewBus(), nil)
		f := facade.New(scriptedPlanner{plan: plan, report: planmodel.ValidationReport{Valid: true}}, ex, progress.NewBus(), nil)

		envelope := f.Run(context.Background(), "output op test", facade.RunOptions{})

		Expect(envelope.Success).To(BeTrue())
		Expect(envelope.Execution.Success).To(BeTrue())
		rows, ok := envelope.Execution.Result.([]map[string]any)
		Expect(ok).To(BeTrue())
		Expect(rows).To(Equal([]map[string]any{{"count": 1}}))
	})

	It("merges only leaf operations, excluding intermediate dependencies", func() {
		upstream := sqlOp("upstream", "postgres_orders")
		downstream, err := planmodel.OperationFor("downstream", planmodel.KindSQL, strPtr("mongo_events"), map[string]any{"sql": "SELECT 1"}, []string{"upstream"}, planmodel.OperationMetadata{})
		Expect(err).NotTo(HaveOccurred())
		plan := &planmodel.QueryPlan{ID: "p5", Operations: []*planmodel.Operation{upstream, downstream}}

		factory := adapter.NewFactory()
		factory.Register("postgres_orders", func() (adapter.Port, error) {
			return faketest.NewAdapter([]map[string]any{{"upstream_row": true}}), nil
		})
		factory.Register("mongo_events", func() (adapter.Port, error) {
			return faketest.NewAdapter([]map[string]any{{"downstream_row": true}}), nil
		})

		ex := executor.New(config.DefaultConfig().Executor, factory, progress.NewBus(), nil)
		f := facade.New(scriptedPlanner{plan: plan, report: planmodel.ValidationReport{Valid: true}}, ex, progress.NewBus(), nil)

		envelope := f.Run(context.Background(), "leaf merge test", facade.RunOptions{})

		Expect(envelope.Success).To(BeTrue())
		merged, ok := envelope.Execution.Result.(aggregator.MergedResult)
		Expect(ok).To(BeTrue())
		Expect(merged.TotalRows).To(Equal(1))
		Expect(merged.Results[0]).To(HaveKeyWithValue("downstream_row", true))
	})
})

func strPtr(s string) *string { return &s }
