package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
)

// BedrockClient implements Port against a Claude model served through
// Amazon Bedrock's InvokeModel API — the second LLM provider of
// spec.md §4.3's "provider fallback chain is the port implementation's
// concern" note.
type BedrockClient struct {
	PromptRenderer
	client  *bedrockruntime.Client
	modelID string
	logger  *zap.Logger
}

// NewBedrockClient wraps an already-configured bedrockruntime.Client
// (built from aws config.LoadDefaultConfig by the caller, so region
// and credential resolution stay the caller's concern).
func NewBedrockClient(client *bedrockruntime.Client, modelID string, logger *zap.Logger) *BedrockClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BedrockClient{client: client, modelID: modelID, logger: logger}
}

// bedrockRequest mirrors Anthropic's Bedrock-flavored request body.
type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float32          `json:"temperature"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *BedrockClient) invoke(ctx context.Context, prompt string, temperature float32) (string, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        4096,
		Temperature:      temperature,
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("llm: encode bedrock request: %w", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("llm: bedrock invoke failed: %w", err)
	}

	var parsed bedrockResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", fmt.Errorf("llm: decode bedrock response: %w", err)
	}

	var text bytes.Buffer
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("llm: bedrock response contained no text content")
	}
	return text.String(), nil
}

func (c *BedrockClient) CompleteJSON(ctx context.Context, prompt string, temperature float32) (map[string]any, error) {
	text, err := c.invoke(ctx, prompt, temperature)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, &ErrParse{Raw: text, Err: err}
	}
	return obj, nil
}

// StreamText invokes the non-streaming API and replays the full
// response as a single chunk. Bedrock's InvokeModelWithResponseStream
// API would give true incremental streaming; this reference
// implementation favors the simpler non-streaming path since
// pkg/planning never calls StreamText on the critical path (it is
// exposed for interactive/demo use only).
func (c *BedrockClient) StreamText(ctx context.Context, prompt string, temperature float32) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)
		text, err := c.invoke(ctx, prompt, temperature)
		if err != nil {
			errc <- err
			return
		}
		select {
		case out <- text:
		case <-ctx.Done():
			errc <- ctx.Err()
		}
	}()

	return out, errc
}
