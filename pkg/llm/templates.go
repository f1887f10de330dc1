package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// The three named templates the planning pipeline drives (spec.md
// §4.4): classify candidate backends, synthesize a plan, and
// optionally optimize one. Mirrors the original's
// `result_aggregator.tpl`-style named-template convention, rendered
// here through langchaingo's PromptTemplate instead of Python string
// formatting.
const (
	TemplateClassify   = "classify"
	TemplateSynthesize = "synthesize"
	TemplateOptimize   = "optimize"
)

var registeredTemplates = map[string]prompts.PromptTemplate{
	TemplateClassify: prompts.NewPromptTemplate(
		`Given the question below, decide which backend kinds are relevant.
Known kinds: postgres, mongodb, qdrant, slack, shopify, ga4.

Question: {{.question}}

Respond with a JSON object: {"selected_kinds": [string], "rationale": object}.`,
		[]string{"question"},
	),
	TemplateSynthesize: prompts.NewPromptTemplate(
		`Question: {{.question}}
Candidate backend kinds: {{.kinds}}
Schema context: {{.schema_context}}

Produce a query plan as a JSON document with "operations" (each with
id, source_id, depends_on, metadata, params, and a "db_type" matching
one of the candidate kinds) and an optional "output_operation_id".`,
		[]string{"question", "kinds", "schema_context"},
	),
	TemplateOptimize: prompts.NewPromptTemplate(
		`Here is a validated query plan: {{.plan_json}}
Optional runtime statistics: {{.stats}}

Suggest optimizations (e.g. reordering independent operations, merging
redundant lookups). Respond with the same plan JSON document, with an
updated "optimization_notes" list describing any changes made.`,
		[]string{"plan_json", "stats"},
	),
}

// Render looks up a registered template by name and formats it with
// vars. It is shared by every Port implementation via embedding
// PromptRenderer.
func Render(name string, vars map[string]any) (string, error) {
	tpl, ok := registeredTemplates[name]
	if !ok {
		return "", fmt.Errorf("llm: unknown template %q", name)
	}
	rendered, err := tpl.Format(vars)
	if err != nil {
		return "", fmt.Errorf("llm: render template %q: %w", name, err)
	}
	return rendered, nil
}

// PromptRenderer implements the RenderTemplate half of Port and is
// embedded by both concrete clients so neither needs to reimplement
// template lookup.
type PromptRenderer struct{}

func (PromptRenderer) RenderTemplate(name string, vars map[string]any) (string, error) {
	return Render(name, vars)
}
