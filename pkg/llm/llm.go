// Package llm implements LLMPort (spec.md §4.3): the single surface
// the planner uses to render prompts, obtain parsed JSON completions,
// and stream free text. Authentication, retries, and provider
// fallback are each concrete implementation's concern, not the core's.
package llm

import "context"

// Port is the contract consumed by pkg/planning. Two concrete
// implementations back it: AnthropicClient and BedrockClient.
type Port interface {
	// RenderTemplate deterministically renders a named template with
	// the given variables. Templates are registered once at startup
	// (see templates.go); an unknown name is a programmer error.
	RenderTemplate(name string, vars map[string]any) (string, error)

	// CompleteJSON sends prompt to the model and parses the response
	// as a single JSON object. A response that is not valid JSON
	// returns ErrParse — the caller decides whether to retry or fall
	// back to the rule-based path.
	CompleteJSON(ctx context.Context, prompt string, temperature float32) (map[string]any, error)

	// StreamText streams the model's free-text completion. The
	// returned channels are both closed when the stream ends; at most
	// one value is ever sent on the error channel. The stream is
	// finite and not restartable.
	StreamText(ctx context.Context, prompt string, temperature float32) (<-chan string, <-chan error)
}

// ErrParse is returned (wrapped) by CompleteJSON when the model's
// response could not be parsed as a JSON object.
type ErrParse struct {
	Raw string
	Err error
}

func (e *ErrParse) Error() string {
	return "llm_parse_error: " + e.Err.Error()
}

func (e *ErrParse) Unwrap() error {
	return e.Err
}
