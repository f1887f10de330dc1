package executor_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hardikgo/crossdb/internal/config"
	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/adapter"
	"github.com/hardikgo/crossdb/pkg/adapter/faketest"
	"github.com/hardikgo/crossdb/pkg/executor"
	"github.com/hardikgo/crossdb/pkg/planmodel"
	"github.com/hardikgo/crossdb/pkg/progress"
)

func sqlOp(id, sourceID string, dependsOn []string, complexity planmodel.Complexity) *planmodel.Operation {
	op, err := planmodel.OperationFor(id, planmodel.KindSQL, &sourceID, map[string]any{
		"sql": "SELECT 1",
	}, dependsOn, planmodel.OperationMetadata{Complexity: complexity})
	Expect(err).NotTo(HaveOccurred())
	return op
}

var _ = Describe("Executor", func() {
	var cfg config.ExecutorConfig

	BeforeEach(func() {
		cfg = config.DefaultConfig().Executor
	})

	It("executes dependents only after their dependency completes", func() {
		factory := adapter.NewFactory()
		upstream := faketest.NewAdapter([]map[string]any{{"id": 1}})
		upstream.Delay = 30 * time.Millisecond
		downstream := faketest.NewAdapter([]map[string]any{{"id": 2}})
		factory.Register("postgres_a", func() (adapter.Port, error) { return upstream, nil })
		factory.Register("postgres_b", func() (adapter.Port, error) { return downstream, nil })

		a := sqlOp("a", "postgres_a", nil, planmodel.ComplexitySimple)
		b := sqlOp("b", "postgres_b", []string{"a"}, planmodel.ComplexitySimple)
		plan := &planmodel.QueryPlan{ID: "p1", Operations: []*planmodel.Operation{b, a}}

		ex := executor.New(cfg, factory, progress.NewBus(), nil)
		summary := ex.Run(context.Background(), "session-1", plan)

		Expect(summary.SuccessfulOperations).To(Equal(2))
		Expect(a.Status).To(Equal(planmodel.StatusCompleted))
		Expect(b.Status).To(Equal(planmodel.StatusCompleted))
	})

	It("fails a dependent fast when its dependency fails, without executing it", func() {
		factory := adapter.NewFactory()
		upstream := faketest.NewAdapter(nil)
		upstream.Err = appErrors.New(appErrors.ErrorTypeAdapterSyntax, "bad query")
		downstream := faketest.NewAdapter([]map[string]any{{"id": 2}})
		factory.Register("postgres_a", func() (adapter.Port, error) { return upstream, nil })
		factory.Register("postgres_b", func() (adapter.Port, error) { return downstream, nil })

		a := sqlOp("a", "postgres_a", nil, planmodel.ComplexitySimple)
		b := sqlOp("b", "postgres_b", []string{"a"}, planmodel.ComplexitySimple)
		plan := &planmodel.QueryPlan{ID: "p1", Operations: []*planmodel.Operation{a, b}}

		ex := executor.New(cfg, factory, progress.NewBus(), nil)
		summary := ex.Run(context.Background(), "session-1", plan)

		Expect(summary.FailedOperations).To(Equal(2))
		Expect(b.Status).To(Equal(planmodel.StatusFailed))
		Expect(downstream.Attempts()).To(Equal(0))
	})

	It("never runs more operations against one backend than its configured limit", func() {
		cfg.PostgresLimit = 2

		factory := adapter.NewFactory()
		shared := faketest.NewAdapter([]map[string]any{{"ok": true}})
		shared.Delay = 20 * time.Millisecond

		var ops []*planmodel.Operation
		for i := 0; i < 6; i++ {
			sourceID := "postgres_shared"
			factory.Register(sourceID, func() (adapter.Port, error) { return shared, nil })
			ops = append(ops, sqlOp(opID(i), sourceID, nil, planmodel.ComplexitySimple))
		}
		plan := &planmodel.QueryPlan{ID: "p2", Operations: ops}

		ex := executor.New(cfg, factory, progress.NewBus(), nil)
		summary := ex.Run(context.Background(), "session-2", plan)

		Expect(summary.SuccessfulOperations).To(Equal(6))
		Expect(shared.MaxObservedConcurrency()).To(BeNumerically("<=", 2))
	})

	It("force-admits only one ready operation per round when the global weight gate would otherwise deadlock", func() {
		cfg.MaxTotalWeight = 1
		cfg.MaxConcurrentOperations = 8

		factory := adapter.NewFactory()
		var ops []*planmodel.Operation
		for i := 0; i < 3; i++ {
			sourceID := "postgres_" + opID(i)
			factory.Register(sourceID, func() (adapter.Port, error) {
				return faketest.NewAdapter([]map[string]any{{"ok": true}}), nil
			})
			ops = append(ops, sqlOp(opID(i), sourceID, nil, planmodel.ComplexityComplex))
		}
		plan := &planmodel.QueryPlan{ID: "p6", Operations: ops}

		ex := executor.New(cfg, factory, progress.NewBus(), nil)
		summary := ex.Run(context.Background(), "session-6", plan)

		Expect(summary.SuccessfulOperations).To(Equal(3))
		for _, op := range ops {
			Expect(op.Status).To(Equal(planmodel.StatusCompleted))
		}
	})

	It("retries a retryable failure until it succeeds, within the configured attempt budget", func() {
		cfg.MaxRetryAttempts = 3

		factory := adapter.NewFactory()
		flaky := faketest.NewAdapter([]map[string]any{{"ok": true}})
		flaky.Err = appErrors.New(appErrors.ErrorTypeAdapterConnection, "connection reset")
		flaky.FailuresBeforeSuccess = 2
		factory.Register("postgres_flaky", func() (adapter.Port, error) { return flaky, nil })

		op := sqlOp("a", "postgres_flaky", nil, planmodel.ComplexitySimple)
		plan := &planmodel.QueryPlan{ID: "p3", Operations: []*planmodel.Operation{op}}

		ex := executor.New(cfg, factory, progress.NewBus(), nil)
		summary := ex.Run(context.Background(), "session-3", plan)

		Expect(summary.SuccessfulOperations).To(Equal(1))
		Expect(flaky.Attempts()).To(Equal(3))
	})

	It("does not retry a non-retryable failure", func() {
		factory := adapter.NewFactory()
		broken := faketest.NewAdapter(nil)
		broken.Err = appErrors.New(appErrors.ErrorTypeAdapterSyntax, "syntax error")
		factory.Register("postgres_broken", func() (adapter.Port, error) { return broken, nil })

		op := sqlOp("a", "postgres_broken", nil, planmodel.ComplexitySimple)
		plan := &planmodel.QueryPlan{ID: "p4", Operations: []*planmodel.Operation{op}}

		ex := executor.New(cfg, factory, progress.NewBus(), nil)
		summary := ex.Run(context.Background(), "session-4", plan)

		Expect(summary.FailedOperations).To(Equal(1))
		Expect(broken.Attempts()).To(Equal(1))
	})

	It("publishes operation lifecycle events on the progress bus", func() {
		factory := adapter.NewFactory()
		ok := faketest.NewAdapter([]map[string]any{{"ok": true}})
		factory.Register("postgres_ok", func() (adapter.Port, error) { return ok, nil })

		op := sqlOp("a", "postgres_ok", nil, planmodel.ComplexitySimple)
		plan := &planmodel.QueryPlan{ID: "p5", Operations: []*planmodel.Operation{op}}

		bus := progress.NewBus()
		events, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		ex := executor.New(cfg, factory, bus, nil)
		ex.Run(context.Background(), "session-5", plan)

		var seen []progress.EventType
		for i := 0; i < 3; i++ {
			select {
			case ev := <-events:
				seen = append(seen, ev.Type)
			case <-time.After(time.Second):
			}
		}
		Expect(seen).To(ContainElement(progress.EventOperationStarted))
		Expect(seen).To(ContainElement(progress.EventOperationCompleted))
	})
})

func opID(i int) string {
	return string(rune('a' + i))
}
