// Package testutil provides hand-written fakes for LLMPort and
// SchemaRegistryPort, following this module's convention of fakes over
// generated mocks.
package testutil

import (
	"context"
	"fmt"

	"github.com/hardikgo/crossdb/pkg/llm"
)

// FakeLLM is a scriptable llm.Port: callers preload responses keyed by
// template name, and record every prompt they were asked to complete.
type FakeLLM struct {
	llm.PromptRenderer

	// Responses maps a template name to the object CompleteJSON
	// returns when the prompt was rendered from that template. The
	// fake looks the template up in TemplateOf, which RenderTemplate
	// fills, since the Port interface itself only sees the final
	// prompt string.
	Responses map[string]map[string]any

	// FailTemplate, if set, makes CompleteJSON return an error for
	// prompts rendered from that template — used to exercise the
	// pipeline's rule-based classifier fallback.
	FailTemplate string

	// Prompts records every prompt passed to CompleteJSON, in order.
	Prompts []string

	// TemplateOf maps a rendered prompt to the template name it came
	// from, populated by RenderTemplate so CompleteJSON can look up
	// the right canned response without re-parsing the prompt text.
	TemplateOf map[string]string
}

// NewFakeLLM returns an empty, ready-to-configure fake.
func NewFakeLLM() *FakeLLM {
	return &FakeLLM{
		Responses:  map[string]map[string]any{},
		TemplateOf: map[string]string{},
	}
}

func (f *FakeLLM) RenderTemplate(name string, vars map[string]any) (string, error) {
	rendered, err := f.PromptRenderer.RenderTemplate(name, vars)
	if err != nil {
		return "", err
	}
	f.TemplateOf[rendered] = name
	return rendered, nil
}

func (f *FakeLLM) CompleteJSON(ctx context.Context, prompt string, temperature float32) (map[string]any, error) {
	f.Prompts = append(f.Prompts, prompt)
	name := f.TemplateOf[prompt]
	if name != "" && name == f.FailTemplate {
		return nil, fmt.Errorf("fakeLLM: simulated failure for template %q", name)
	}
	resp, ok := f.Responses[name]
	if !ok {
		return nil, fmt.Errorf("fakeLLM: no canned response registered for template %q", name)
	}
	return resp, nil
}

func (f *FakeLLM) StreamText(ctx context.Context, prompt string, temperature float32) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errc := make(chan error, 1)
	out <- "fake stream chunk"
	close(out)
	close(errc)
	return out, errc
}
