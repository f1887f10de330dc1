// Package facade implements CrossDBFacade (C8): the single entrypoint
// that takes a natural-language question and drives it through
// classification, planning, execution, and aggregation to a structured
// envelope. It is grounded on
// original_source/server/agent/db/orchestrator/cross_db_orchestrator.py's
// CrossDatabaseOrchestrator — this module's planning/execution/
// aggregation split supersedes that file's flatter
// classify/get-or-create-orchestrator/execute-per-source loop, but
// keeps its shape: one facade holds the planner, executor and progress
// bus (per-source adapter caching lives in the executor's
// adapter.Factory) and runs every request through the same five steps.
package facade

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hardikgo/crossdb/pkg/aggregator"
	"github.com/hardikgo/crossdb/pkg/executor"
	"github.com/hardikgo/crossdb/pkg/planmodel"
	"github.com/hardikgo/crossdb/pkg/planning"
	"github.com/hardikgo/crossdb/pkg/progress"
	"github.com/hardikgo/crossdb/pkg/tracing"
)

// RunOptions configures one Facade.Run call.
type RunOptions struct {
	// Optimize requests the planner's optional LLM optimize pass.
	Optimize bool
	// DryRun, when true, stops after classify+plan+validate: the
	// envelope carries the plan and validation report but the executor
	// never runs and Execution is nil.
	DryRun bool
	// Join, when non-nil, requests that operation results be joined
	// rather than merely merged once execution completes.
	Join *aggregator.JoinOptions
	// GroupBy, when set, requests group-by aggregation over the merged
	// (or joined) rows after execution.
	GroupBy *GroupByRequest
}

// GroupByRequest bundles group_by_aggregation's two inputs so RunOptions
// has one optional field rather than two that must agree on presence.
type GroupByRequest struct {
	Fields       []string
	Aggregations []aggregator.AggregationSpec
}

// Planner is the slice of planning.Pipeline the facade depends on,
// kept as an interface so tests can substitute a scripted plan without
// standing up a real LLM/schema registry. *planning.Pipeline satisfies
// it structurally.
type Planner interface {
	Plan(ctx context.Context, question string, optimize bool) (*planmodel.QueryPlan, planmodel.ValidationReport)
}

var _ Planner = (*planning.Pipeline)(nil)

// Facade wires a Planner, executor.Executor, and pkg/aggregator into
// the single call spec.md §4.7 describes.
type Facade struct {
	Planner  Planner
	Executor *executor.Executor
	Bus      *progress.Bus
	Logger   *zap.Logger
}

// New builds a Facade. A nil bus or logger is replaced with a no-op
// default, matching the rest of this module's constructors.
func New(planner Planner, exec *executor.Executor, bus *progress.Bus, logger *zap.Logger) *Facade {
	if bus == nil {
		bus = progress.NewBus()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{Planner: planner, Executor: exec, Bus: bus, Logger: logger}
}

// Run executes the five steps of spec.md §4.7 — classify+plan, validate,
// execute, aggregate, envelope — publishing progress events tagged with
// a freshly minted session ID at every step, and opening one tracing
// span for the whole run.
func (f *Facade) Run(ctx context.Context, question string, opts RunOptions) planmodel.ExecutionEnvelope {
	sessionID := uuid.NewString()
	ctx, span := tracing.StartSession(ctx, sessionID)
	defer span.End()

	f.Bus.Publish(progress.Event{Type: progress.EventClassifying, SessionID: sessionID, Data: map[string]any{"question": question}})

	plan, report := f.Planner.Plan(ctx, question, opts.Optimize)

	if plan != nil {
		f.Bus.Publish(progress.Event{
			Type: progress.EventDatabasesSelected, SessionID: sessionID,
			Data: map[string]any{"sources": sourcesOf(plan)},
		})
	}
	f.Bus.Publish(progress.Event{Type: progress.EventPlanValidated, SessionID: sessionID, Data: map[string]any{"valid": report.Valid}})

	if plan == nil || !report.Valid {
		f.Bus.Publish(progress.Event{Type: progress.EventError, SessionID: sessionID, Data: map[string]any{"errors": report.Errors}})
		return planmodel.ExecutionEnvelope{Success: false, Plan: plan, Validation: report}
	}

	if opts.DryRun {
		f.Bus.Publish(progress.Event{Type: progress.EventComplete, SessionID: sessionID, Data: map[string]any{"dry_run": true}})
		return planmodel.ExecutionEnvelope{Success: true, Plan: plan, Validation: report}
	}

	f.Bus.Publish(progress.Event{Type: progress.EventQueryExecuting, SessionID: sessionID})
	summary := f.Executor.Run(ctx, sessionID, plan)

	result, execSuccess := f.finalResult(ctx, sessionID, plan, summary, opts)
	f.Bus.Publish(progress.Event{Type: progress.EventComplete, SessionID: sessionID, Data: map[string]any{"success": execSuccess}})

	return planmodel.ExecutionEnvelope{
		Success:    execSuccess,
		Plan:       plan,
		Validation: report,
		Execution: &planmodel.ExecutionResult{
			Success:          execSuccess,
			ExecutionSummary: summary,
			Result:           result,
		},
	}
}

// finalResult binds the envelope's result and plan-level success flag
// per spec.md §3/§4.5/§4.7 step 5: when the plan designates an
// output_operation_id, that operation's own result and terminal status
// drive the envelope directly and no aggregation runs at all — an
// unrelated operation elsewhere in the plan failing does not flip
// success to false. Otherwise the facade falls back to merging/joining
// every leaf operation's result, and success requires every leaf to
// have reached COMPLETED.
func (f *Facade) finalResult(ctx context.Context, sessionID string, plan *planmodel.QueryPlan, summary planmodel.ExecutionSummary, opts RunOptions) (any, bool) {
	if plan.Metadata.OutputOperationID != nil {
		detail := summary.OperationDetails[*plan.Metadata.OutputOperationID]
		return detail.Result, detail.Status == planmodel.StatusCompleted
	}

	leaves := planmodel.BuildDAG(plan).Leaves()
	allLeavesCompleted := len(leaves) > 0
	for _, id := range leaves {
		if summary.OperationDetails[id].Status != planmodel.StatusCompleted {
			allLeavesCompleted = false
			break
		}
	}

	return f.aggregate(ctx, sessionID, plan, summary, leaves, opts), allLeavesCompleted
}

// aggregate runs the merge/join/group-by requested by opts over the
// designated leaf operations' results (spec.md §4.7 step 5: "merge
// over all leaf successes"), publishing the aggregating/
// aggregation_complete pair of progress events around it.
func (f *Facade) aggregate(ctx context.Context, sessionID string, plan *planmodel.QueryPlan, summary planmodel.ExecutionSummary, leaves []string, opts RunOptions) any {
	f.Bus.Publish(progress.Event{Type: progress.EventAggregating, SessionID: sessionID})
	_, span := tracing.StartAggregation(ctx, "facade_aggregate")
	defer span.End()

	opByID := make(map[string]*planmodel.Operation, len(plan.Operations))
	for _, op := range plan.Operations {
		opByID[op.ID] = op
	}

	results := make([]aggregator.SourceResult, 0, len(leaves))
	for _, id := range leaves {
		detail := summary.OperationDetails[id]
		sourceID := id
		if op := opByID[id]; op != nil && op.SourceID != nil {
			sourceID = *op.SourceID
		}
		sr := aggregator.SourceResult{SourceID: sourceID, Success: detail.Status == planmodel.StatusCompleted, Error: detail.Error}
		if sr.Success {
			sr.Data, _ = detail.Result.([]map[string]any)
		}
		results = append(results, sr)
	}

	var out any
	var rows []map[string]any
	switch {
	case opts.Join != nil:
		joined := aggregator.Join(results, *opts.Join)
		out, rows = joined, joined.Results
	default:
		merged := aggregator.Merge(results)
		out, rows = merged, merged.Results
	}
	if opts.GroupBy != nil {
		grouped, err := aggregator.GroupBy(rows, opts.GroupBy.Fields, opts.GroupBy.Aggregations)
		if err != nil {
			f.Logger.Warn("facade: group_by aggregation failed, returning ungrouped rows", zap.Error(err))
		} else {
			out = grouped
		}
	}

	f.Bus.Publish(progress.Event{Type: progress.EventAggregationComplete, SessionID: sessionID})
	return out
}

func sourcesOf(plan *planmodel.QueryPlan) []string {
	seen := map[string]bool{}
	var out []string
	for _, op := range plan.Operations {
		if op.SourceID == nil || seen[*op.SourceID] {
			continue
		}
		seen[*op.SourceID] = true
		out = append(out, *op.SourceID)
	}
	return out
}
