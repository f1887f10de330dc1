package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hardikgo/crossdb/internal/config"
	"github.com/hardikgo/crossdb/pkg/llm"
	"github.com/hardikgo/crossdb/pkg/planmodel"
	"github.com/hardikgo/crossdb/pkg/schema"
)

// StatsProvider supplies runtime profiling statistics to the optimize
// step (spec.md §9 Open Question: "Optimization statistics"). A nil
// StatsProvider disables the optimize step's use of live stats without
// blocking callers who pass optimize=true; Describe returns "" in
// that case.
type StatsProvider interface {
	Describe(ctx context.Context, plan *planmodel.QueryPlan) string
}

// NoopStatsProvider is the default, zero-cost StatsProvider.
type NoopStatsProvider struct{}

func (NoopStatsProvider) Describe(ctx context.Context, plan *planmodel.QueryPlan) string { return "" }

// Pipeline implements PlanningPipeline (C5).
type Pipeline struct {
	LLM      llm.Port
	Registry schema.RegistryPort
	Stats    StatsProvider
	Config   config.PlanningConfig
	Logger   *zap.Logger

	knownKinds  []string
	knownTables map[string][]string
}

// NewPipeline builds a Pipeline. knownKinds/knownTables seed the
// rule-based classifier fallback (step 1) and are typically derived
// once from the registry's ListSources/ListTables at startup.
func NewPipeline(llmPort llm.Port, registry schema.RegistryPort, cfg config.PlanningConfig, knownKinds []string, knownTables map[string][]string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		LLM:         llmPort,
		Registry:    registry,
		Stats:       NoopStatsProvider{},
		Config:      cfg,
		Logger:      logger,
		knownKinds:  knownKinds,
		knownTables: knownTables,
	}
}

// Plan runs the five steps of spec.md §4.4. It never returns a Go
// error from this entrypoint — every failure folds into the returned
// ValidationReport, mirroring `aggregate_results`'s catch-all +
// partial-result pattern applied here to planning (SPEC_FULL.md §5.4).
func (p *Pipeline) Plan(ctx context.Context, question string, optimize bool) (*planmodel.QueryPlan, planmodel.ValidationReport) {
	kinds, rationale := p.classify(ctx, question)
	if len(kinds) == 0 {
		return nil, planmodel.ValidationReport{
			Valid:  false,
			Errors: []string{"planning: no candidate backend kinds identified for question"},
		}
	}
	p.Logger.Info("classified candidate backends", zap.Strings("kinds", kinds), zap.Any("rationale", rationale))

	schemaContext, err := p.retrieveSchemaContext(ctx, question, kinds)
	if err != nil {
		return nil, planmodel.ValidationReport{Valid: false, Errors: []string{fmt.Sprintf("planning: schema retrieval failed: %s", err.Error())}}
	}

	plan, synthErrs := p.synthesize(ctx, question, kinds, schemaContext)
	if plan == nil {
		return nil, planmodel.ValidationReport{Valid: false, Errors: synthErrs}
	}

	report := plan.Validate(ctx, p.Registry)
	if !report.Valid {
		report.Errors = append(synthErrs, report.Errors...)
		return plan, report
	}
	report.Errors = append(report.Errors, synthErrs...)

	if optimize {
		p.optimize(ctx, plan)
	}

	return plan, report
}

// classify runs the LLM classification template first, falling back
// to the rule-based classifier on any LLM failure or empty result
// (spec.md §4.4 step 1).
func (p *Pipeline) classify(ctx context.Context, question string) ([]string, map[string]string) {
	if p.LLM != nil {
		prompt, err := p.LLM.RenderTemplate(llm.TemplateClassify, map[string]any{"question": question})
		if err == nil {
			result, err := p.LLM.CompleteJSON(ctx, prompt, p.Config.LLMTemperature)
			if err == nil {
				if kinds := extractStringSlice(result["selected_kinds"]); len(kinds) > 0 {
					return kinds, extractRationale(result["rationale"])
				}
			} else {
				p.Logger.Warn("llm classification failed, falling back to rule-based classifier", zap.Error(err))
			}
		}
	}

	c := classifyRuleBased(question, p.knownKinds, p.knownTables)
	sort.Strings(c.SelectedKinds)
	return c.SelectedKinds, c.Rationale
}

// retrieveSchemaContext calls schema_search per candidate kind, dedupes
// by content, and enforces the token budget by greedy highest-score
// selection (spec.md §4.4 step 2).
func (p *Pipeline) retrieveSchemaContext(ctx context.Context, question string, kinds []string) (string, error) {
	topK := p.Config.SchemaItemsPerKind
	if topK <= 0 {
		topK = 5
	}

	var all []schema.SearchResult
	seen := map[string]bool{}
	for _, kind := range kinds {
		results, err := p.Registry.SchemaSearch(ctx, question, kind, topK)
		if err != nil {
			return "", fmt.Errorf("schema_search(%s): %w", kind, err)
		}
		for _, r := range results {
			if seen[r.Content] {
				continue
			}
			seen[r.Content] = true
			all = append(all, r)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Score > all[j].Score })

	maxTokens := p.Config.MaxSchemaTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	var b strings.Builder
	budget := maxTokens
	for _, r := range all {
		cost := estimateTokens(r.Content)
		if cost > budget {
			break
		}
		b.WriteString(r.Content)
		b.WriteString("\n")
		budget -= cost
	}
	return b.String(), nil
}

// estimateTokens is a crude whitespace-based token estimate, adequate
// for a greedy budget cutoff (real token counting is the LLM
// provider's concern per spec.md §4.3).
func estimateTokens(s string) int {
	return len(strings.Fields(s))
}

// synthesize calls the LLM with the orchestration template and parses
// the result via planmodel.OperationFor (spec.md §4.4 step 3).
func (p *Pipeline) synthesize(ctx context.Context, question string, kinds []string, schemaContext string) (*planmodel.QueryPlan, []string) {
	if p.LLM == nil {
		return nil, []string{"planning: no LLM configured for plan synthesis"}
	}

	prompt, err := p.LLM.RenderTemplate(llm.TemplateSynthesize, map[string]any{
		"question":       question,
		"kinds":          strings.Join(kinds, ", "),
		"schema_context": schemaContext,
	})
	if err != nil {
		return nil, []string{fmt.Sprintf("planning: render synthesize template: %s", err.Error())}
	}

	result, err := p.LLM.CompleteJSON(ctx, prompt, p.Config.LLMTemperature)
	if err != nil {
		return nil, []string{fmt.Sprintf("planning: plan synthesis failed: %s", err.Error())}
	}

	rawOps, _ := result["operations"].([]any)
	var errs []string
	operations := make([]*planmodel.Operation, 0, len(rawOps))
	for i, raw := range rawOps {
		opMap, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("operation[%d]: not an object", i))
			continue
		}
		op, err := operationFromMap(opMap)
		if err != nil {
			errs = append(errs, fmt.Sprintf("operation[%d]: %s", i, err.Error()))
			continue
		}
		operations = append(operations, op)
	}

	if len(operations) == 0 {
		return nil, append(errs, "planning: synthesized plan contained no valid operations")
	}

	metadata := planmodel.PlanMetadata{Question: question, Version: "1.0"}
	if outID, ok := result["output_operation_id"].(string); ok && outID != "" {
		metadata.OutputOperationID = &outID
	}

	plan := planmodel.NewPlan(operations, metadata)
	return plan, errs
}

// operationFromMap decodes one synthesized operation via
// planmodel.OperationFor, coercing the common parameter aliases.
func operationFromMap(m map[string]any) (*planmodel.Operation, error) {
	id, _ := m["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("missing id")
	}
	dbType, _ := m["db_type"].(string)
	kind, ok := kindForDBType(dbType)
	if !ok {
		kind = planmodel.KindGeneric
	}

	var sourceID *string
	if s, ok := m["source_id"].(string); ok && s != "" {
		sourceID = &s
	}

	dependsOn := extractStringSlice(m["depends_on"])

	metadata := planmodel.OperationMetadata{}
	if md, ok := m["metadata"].(map[string]any); ok {
		if ot, ok := md["operation_type"].(string); ok {
			metadata.OperationType = ot
		}
	}

	params, _ := m["params"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}

	return planmodel.OperationFor(id, kind, sourceID, params, dependsOn, metadata)
}

func kindForDBType(dbType string) (planmodel.OperationKind, bool) {
	switch dbType {
	case "postgres":
		return planmodel.KindSQL, true
	case "mongodb":
		return planmodel.KindMongo, true
	case "qdrant":
		return planmodel.KindVector, true
	case "slack":
		return planmodel.KindMessaging, true
	case "shopify", "ga4":
		return planmodel.KindCommerce, true
	default:
		return planmodel.KindGeneric, false
	}
}

// optimize runs the optional LLM optimize pass (spec.md §4.4 step 5).
// It is best-effort: the LLM may return a revised plan (reordered or
// merged operations) alongside optimization_notes; the revision is
// parsed via the same operationFromMap path as synthesize and
// re-validated. Any failure along the way — render, call, parse, or
// re-validation — leaves the original plan in place untouched, per
// spec.md's "optimization is best-effort" rule; nothing here is
// surfaced as a validation error, since the plan is already known
// valid by the time optimize runs.
func (p *Pipeline) optimize(ctx context.Context, plan *planmodel.QueryPlan) {
	if p.LLM == nil {
		return
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		p.Logger.Warn("optimize: failed to serialize plan", zap.Error(err))
		return
	}

	stats := ""
	if p.Stats != nil {
		stats = p.Stats.Describe(ctx, plan)
	}

	prompt, err := p.LLM.RenderTemplate(llm.TemplateOptimize, map[string]any{
		"plan_json": string(planJSON),
		"stats":     stats,
	})
	if err != nil {
		p.Logger.Warn("optimize: failed to render template", zap.Error(err))
		return
	}

	result, err := p.LLM.CompleteJSON(ctx, prompt, p.Config.LLMTemperature)
	if err != nil {
		p.Logger.Warn("optimize: llm call failed, leaving plan unchanged", zap.Error(err))
		return
	}

	notes := extractStringSlice(result["optimization_notes"])

	if rawOps, ok := result["operations"].([]any); ok && len(rawOps) > 0 {
		revised := make([]*planmodel.Operation, 0, len(rawOps))
		ok := true
		for i, raw := range rawOps {
			opMap, isObj := raw.(map[string]any)
			if !isObj {
				p.Logger.Warn("optimize: revised plan contained a non-object operation, discarding revision", zap.Int("index", i))
				ok = false
				break
			}
			op, err := operationFromMap(opMap)
			if err != nil {
				p.Logger.Warn("optimize: revised plan operation failed to parse, discarding revision", zap.Int("index", i), zap.Error(err))
				ok = false
				break
			}
			revised = append(revised, op)
		}
		if ok {
			candidate := planmodel.NewPlan(revised, plan.Metadata)
			if report := candidate.Validate(ctx, p.Registry); report.Valid {
				*plan = *candidate
			} else {
				p.Logger.Warn("optimize: revised plan failed re-validation, keeping pre-optimization plan", zap.Strings("errors", report.Errors))
			}
		}
	}

	if len(notes) > 0 {
		plan.Metadata.OptimizationNotes = append(plan.Metadata.OptimizationNotes, notes...)
	}
}

func extractStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func extractRationale(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
