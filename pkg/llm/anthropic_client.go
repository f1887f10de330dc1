package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// AnthropicClient implements Port against the Claude Messages API.
type AnthropicClient struct {
	PromptRenderer
	client anthropic.Client
	model  anthropic.Model
	logger *zap.Logger
}

// NewAnthropicClient builds a client from an API key and model name.
// Retries/backoff are handled by the underlying SDK's default
// transport, matching spec.md §4.3's "the port implementation's
// concern, not the core's."
func NewAnthropicClient(apiKey string, model anthropic.Model, logger *zap.Logger) *AnthropicClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

func (c *AnthropicClient) CompleteJSON(ctx context.Context, prompt string, temperature float32) (map[string]any, error) {
	text, err := c.complete(ctx, prompt, temperature)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, &ErrParse{Raw: text, Err: err}
	}
	return obj, nil
}

func (c *AnthropicClient) StreamText(ctx context.Context, prompt string, temperature float32) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		stream := c.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
			Model:       c.model,
			MaxTokens:   4096,
			Temperature: anthropic.Float(float64(temperature)),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		for stream.Next() {
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					select {
					case out <- text:
					case <-ctx.Done():
						errc <- ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errc <- err
		}
	}()

	return out, errc
}

func (c *AnthropicClient) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   4096,
		Temperature: anthropic.Float(float64(temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: anthropic completion failed: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("llm: anthropic response contained no text content")
	}
	return text, nil
}
