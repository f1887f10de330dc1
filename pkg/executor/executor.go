// Package executor is the Go rendering of the source's
// AdaptiveParallelismManager
// (original_source/server/agent/langgraph/parallelism.py): a
// dependency-aware scheduler that runs every operation a plan allows
// as soon as it is ready, bounded by three admission gates — the
// dependency graph itself, a per-backend weighted semaphore, and a
// pair of global weight/concurrency semaphores — with per-backend
// circuit breakers, retry with backoff, per-operation timeouts, and
// between-plan adaptive tuning of the backend semaphore widths.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hardikgo/crossdb/internal/config"
	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/adapter"
	"github.com/hardikgo/crossdb/pkg/metrics"
	"github.com/hardikgo/crossdb/pkg/planmodel"
	"github.com/hardikgo/crossdb/pkg/progress"
	"github.com/hardikgo/crossdb/pkg/tracing"
)

// ExecuteFunc runs a single operation against its backend and returns
// its rows. Executor's default resolves an adapter.Port from Factory
// keyed on the operation's source ID; tests may substitute their own.
type ExecuteFunc func(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error)

// Executor runs one QueryPlan's operations to completion, publishing
// progress events as it goes.
type Executor struct {
	cfg     config.ExecutorConfig
	execute ExecuteFunc
	bus     *progress.Bus
	logger  *zap.Logger

	gates    *gates
	breakers *circuitBreakers
	stats    *adaptiveStats
}

// New builds an Executor that resolves adapters from factory.
func New(cfg config.ExecutorConfig, factory *adapter.Factory, bus *progress.Bus, logger *zap.Logger) *Executor {
	return NewWithExecuteFunc(cfg, bus, logger, func(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error) {
		if op.SourceID == nil {
			return nil, appErrors.New(appErrors.ErrorTypeAdapterSyntax, "operation has no source_id to resolve an adapter")
		}
		port, err := factory.Get(*op.SourceID)
		if err != nil {
			return nil, err
		}
		return port.Execute(ctx, op)
	})
}

// NewWithExecuteFunc builds an Executor with a caller-supplied
// execution function, bypassing adapter resolution entirely (used by
// tests against in-memory fakes).
func NewWithExecuteFunc(cfg config.ExecutorConfig, bus *progress.Bus, logger *zap.Logger, execute ExecuteFunc) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = progress.NewBus()
	}
	return &Executor{
		cfg:      cfg,
		execute:  execute,
		bus:      bus,
		logger:   logger,
		gates:    newGates(cfg),
		breakers: newCircuitBreakers(logger),
		stats:    newAdaptiveStats(),
	}
}

func (e *Executor) operationTimeout() time.Duration {
	if e.cfg.OperationTimeout <= 0 {
		return 60 * time.Second
	}
	return e.cfg.OperationTimeout
}

// run is the innermost call: invoke the execute function once, with no
// retry or breaker wrapping (those live in executeWithRetry).
func (e *Executor) run(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error) {
	return e.execute(ctx, op)
}

type outcome struct {
	op  *planmodel.Operation
	err error
}

type schedulerState struct {
	completed        map[string]bool
	active           map[string]bool
	failed           map[string]bool
	admittedGlobally map[string]bool
	successCount     int
	failCount        int
	firstFailedID    *string
}

// Run schedules and executes every operation in plan, respecting
// DependsOn, and mutates each Operation's Status/Result/Error/
// ExecutionTime in place. It returns once every operation has reached
// a terminal state, then performs one round of adaptive tuning.
func (e *Executor) Run(ctx context.Context, sessionID string, plan *planmodel.QueryPlan) planmodel.ExecutionSummary {
	start := time.Now()
	ops := plan.Operations
	total := len(ops)

	st := &schedulerState{
		completed:        make(map[string]bool, total),
		active:           make(map[string]bool, total),
		failed:           make(map[string]bool, total),
		admittedGlobally: make(map[string]bool, total),
	}

	resultCh := make(chan outcome, total)
	eg, egCtx := errgroup.WithContext(ctx)
	deadlocked := false

	for len(st.completed) < total {
		ready := e.readyOperations(ops, st.completed, st.active)

		admittedThisRound := 0
		forcedThisRound := false
		for _, op := range ready {
			if depID, failedDep := firstFailedDependency(op.DependsOn, st.failed); failedDep {
				e.failFastOnDependency(op, depID)
				e.recordOutcome(st, outcome{op: op, err: appErrors.New(appErrors.ErrorTypeDependencyFailed, op.Error)})
				e.bus.Publish(progress.Event{
					Type: progress.EventOperationFailed, SessionID: sessionID, OperationID: op.ID,
					Data: map[string]any{"error": op.Error},
				})
				continue
			}

			kind := backendKindFor(op)
			weight := weightFor(op)

			if e.gates.tryAdmitGlobal(weight) {
				st.admittedGlobally[op.ID] = true
			} else if deadlocked && !forcedThisRound {
				// Possible deadlock: force-admit exactly one remaining
				// ready operation, bypassing the global gate but never
				// the backend semaphore (runOne still acquires it).
				forcedThisRound = true
			} else {
				continue
			}

			st.active[op.ID] = true
			admittedThisRound++
			op := op
			eg.Go(func() error {
				e.runOne(egCtx, sessionID, op, kind, resultCh)
				return nil
			})
		}

		if admittedThisRound > 0 {
			deadlocked = false
		} else if len(st.active) == 0 {
			if len(ready) == 0 {
				if len(st.completed) < total {
					e.logger.Error("executor stalled: no ready operations but plan incomplete",
						zap.Int("completed", len(st.completed)), zap.Int("total", total))
				}
				break
			}
			// No active tasks and nothing could be admitted under the
			// global gates: force-admit next round, bypassing the
			// global weight/concurrency check but never the backend
			// semaphore ("Possible deadlock detected").
			e.logger.Warn("no capacity under global gates for ready operations, forcing admission")
			deadlocked = true
			continue
		}

		out := <-resultCh
		e.recordOutcome(st, out)
		drainReady(resultCh, func(o outcome) { e.recordOutcome(st, o) })
	}

	_ = eg.Wait()

	duration := time.Since(start)
	successRate := 0.0
	if total > 0 {
		successRate = float64(st.successCount) / float64(total)
	}
	e.stats.recordBatch(successRate, duration)
	e.adjust()

	e.bus.Publish(progress.Event{Type: progress.EventComplete, SessionID: sessionID, Data: map[string]any{
		"total": total, "succeeded": st.successCount, "failed": st.failCount,
	}})

	details := make(map[string]planmodel.OpResult, total)
	for _, op := range ops {
		details[op.ID] = planmodel.OpResult{
			Status:        op.Status,
			Result:        op.Result,
			Error:         op.Error,
			ExecutionTime: op.ExecutionTime.Seconds(),
		}
	}

	return planmodel.ExecutionSummary{
		TotalOperations:      total,
		SuccessfulOperations: st.successCount,
		FailedOperations:     st.failCount,
		ExecutionTimeSeconds: duration.Seconds(),
		FailedOperationID:    st.firstFailedID,
		OperationDetails:     details,
	}
}

func (e *Executor) recordOutcome(st *schedulerState, out outcome) {
	st.completed[out.op.ID] = true
	delete(st.active, out.op.ID)
	if st.admittedGlobally[out.op.ID] {
		e.gates.releaseGlobal(weightFor(out.op))
	}

	if out.err != nil {
		st.failed[out.op.ID] = true
		st.failCount++
		if st.firstFailedID == nil {
			id := out.op.ID
			st.firstFailedID = &id
		}
	} else {
		st.successCount++
	}
}

// drainReady consumes any additional already-completed outcomes
// without blocking, so the scheduler reacts to every finished
// operation before recomputing the ready set, rather than one at a
// time ("asyncio.wait(..., return_when=FIRST_COMPLETED)" returns every
// task that finished in the same tick, not just one).
func drainReady(ch <-chan outcome, handle func(outcome)) {
	for {
		select {
		case o := <-ch:
			handle(o)
		default:
			return
		}
	}
}

// readyOperations returns every operation whose dependencies are all
// in completed and which is neither completed nor already active,
// mirroring "_execute_with_true_parallelism"'s ready_ops computation.
func (e *Executor) readyOperations(ops []*planmodel.Operation, completed, active map[string]bool) []*planmodel.Operation {
	var ready []*planmodel.Operation
	for _, op := range ops {
		if completed[op.ID] || active[op.ID] {
			continue
		}
		if dependenciesSatisfied(op.DependsOn, completed) {
			ready = append(ready, op)
		}
	}
	return ready
}

func dependenciesSatisfied(deps []string, completed map[string]bool) bool {
	for _, dep := range deps {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// firstFailedDependency reports the first dependency of deps present
// in failed, if any. A pending operation whose dependency failed is
// never executed — it fails fast with a dependency_failed error
// instead of hanging, which the source leaves undefined.
func firstFailedDependency(deps []string, failed map[string]bool) (string, bool) {
	for _, dep := range deps {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}

func (e *Executor) failFastOnDependency(op *planmodel.Operation, depID string) {
	op.Status = planmodel.StatusFailed
	op.Error = appErrors.NewDependencyFailedError(op.ID, depID).Error()
}

func (e *Executor) runOne(ctx context.Context, sessionID string, op *planmodel.Operation, kind string, out chan<- outcome) {
	ctx, span := tracing.StartOperation(ctx, op.ID, kind)
	var spanErr error
	defer func() { tracing.End(span, spanErr) }()

	sem := e.gates.backendSemaphore(kind)
	weight := weightFor(op)
	if err := sem.Acquire(ctx, weight); err != nil {
		wrapped := appErrors.Wrap(err, appErrors.ErrorTypeInternal, "acquire backend slot")
		spanErr = wrapped
		op.Status = planmodel.StatusFailed
		op.Error = wrapped.Error()
		out <- outcome{op: op, err: wrapped}
		return
	}
	defer sem.Release(weight)

	op.Status = planmodel.StatusRunning
	metrics.OperationsStarted.WithLabelValues(kind).Inc()
	e.bus.Publish(progress.Event{
		Type: progress.EventOperationStarted, SessionID: sessionID, OperationID: op.ID,
		Data: map[string]any{"backend": kind},
	})

	start := time.Now()
	result, err := e.executeWithRetry(ctx, op, kind)
	duration := time.Since(start)

	e.stats.record(kind, int(op.Metadata.Complexity), duration, err == nil)
	metrics.OperationDuration.WithLabelValues(kind).Observe(duration.Seconds())

	op.ExecutionTime = duration
	spanErr = err
	if err != nil {
		op.Status = planmodel.StatusFailed
		op.Error = err.Error()
		metrics.OperationsCompleted.WithLabelValues(kind, "failed").Inc()
		e.bus.Publish(progress.Event{
			Type: progress.EventOperationFailed, SessionID: sessionID, OperationID: op.ID,
			Data: map[string]any{"error": err.Error()},
		})
	} else {
		op.Status = planmodel.StatusCompleted
		op.Result = result
		metrics.OperationsCompleted.WithLabelValues(kind, "success").Inc()
		e.bus.Publish(progress.Event{Type: progress.EventOperationCompleted, SessionID: sessionID, OperationID: op.ID})
	}

	out <- outcome{op: op, err: err}
}

func backendKindFor(op *planmodel.Operation) string {
	if kind := planmodel.BackendKindFor(op.Kind); kind != "" {
		return kind
	}
	return "generic"
}

func weightFor(op *planmodel.Operation) int64 {
	w := int64(op.Metadata.Complexity)
	if w < 1 {
		w = 1
	}
	return w
}
