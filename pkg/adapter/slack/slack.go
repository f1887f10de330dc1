// Package slack is a reference AdapterPort implementation exercising
// the slack backend kind (MessagingOp operations) via
// github.com/slack-go/slack. This codebase otherwise references Slack
// only through its own notification/delivery webhook abstraction
// (test/e2e/notification/08_slack_tls_test.go), never the slack-go
// client library directly, so this adapter's API usage is written
// from the library's own documented surface, while following the same
// Adapter/New/Execute shape as its postgres, mongo and qdrant
// siblings.
package slack

import (
	"context"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// Adapter executes MessagingOp operations against a single Slack
// workspace.
type Adapter struct {
	client *slack.Client
	logger *zap.Logger
}

// New builds an Adapter authenticated with a bot token.
func New(token string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: slack.New(token), logger: logger}
}

// NewFromClient wraps an already-constructed *slack.Client (used by
// tests against a local httptest server, per slack.OptionAPIURL).
func NewFromClient(client *slack.Client, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, logger: logger}
}

func (a *Adapter) TestConnection(ctx context.Context) (bool, error) {
	if _, err := a.client.AuthTestContext(ctx); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "slack auth test failed")
	}
	return true, nil
}

// Execute runs op.Messaging as a full-text search when Query is set,
// or a channel history fetch bounded by TimeRange otherwise.
func (a *Adapter) Execute(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error) {
	if op.Messaging == nil {
		return nil, appErrors.New(appErrors.ErrorTypeAdapterSyntax, "slack adapter requires a MessagingOp")
	}

	if op.Messaging.Query != "" {
		return a.search(ctx, op.Messaging)
	}
	return a.history(ctx, op.Messaging)
}

func (a *Adapter) search(ctx context.Context, params *planmodel.MessagingParams) ([]map[string]any, error) {
	sp := slack.NewSearchParameters()
	if params.Limit > 0 {
		sp.Count = params.Limit
	}

	results, err := a.client.SearchMessagesContext(ctx, params.Query, sp)
	if err != nil {
		return nil, classifySlackError(err)
	}

	out := make([]map[string]any, 0, len(results.Matches))
	for _, m := range results.Matches {
		out = append(out, map[string]any{
			"channel":   m.Channel.Name,
			"user":      m.User,
			"text":      m.Text,
			"timestamp": m.Timestamp,
			"permalink": m.Permalink,
		})
	}
	return out, nil
}

func (a *Adapter) history(ctx context.Context, params *planmodel.MessagingParams) ([]map[string]any, error) {
	if params.Channel == "" {
		return nil, appErrors.New(appErrors.ErrorTypeAdapterSyntax, "slack history requires a channel")
	}

	req := &slack.GetConversationHistoryParameters{ChannelID: params.Channel}
	if params.Limit > 0 {
		req.Limit = params.Limit
	}
	if params.TimeRange != nil {
		if oldest, ok := params.TimeRange["oldest"].(string); ok {
			req.Oldest = oldest
		}
		if latest, ok := params.TimeRange["latest"].(string); ok {
			req.Latest = latest
		}
	}

	resp, err := a.client.GetConversationHistoryContext(ctx, req)
	if err != nil {
		return nil, classifySlackError(err)
	}

	out := make([]map[string]any, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, map[string]any{
			"channel":   params.Channel,
			"user":      m.User,
			"text":      m.Text,
			"timestamp": m.Timestamp,
		})
	}
	return out, nil
}

// IntrospectSchema lists joinable channels, rendering the messaging
// surface as a single synthetic "messages" table per channel.
func (a *Adapter) IntrospectSchema(ctx context.Context) ([]planmodel.TableDescriptor, error) {
	channels, _, err := a.client.GetConversationsContext(ctx, &slack.GetConversationsParameters{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "list slack channels")
	}

	out := make([]planmodel.TableDescriptor, 0, len(channels))
	for _, ch := range channels {
		out = append(out, planmodel.TableDescriptor{
			Name: ch.Name,
			Fields: map[string]planmodel.FieldMeta{
				"text":      {DataType: "string"},
				"user":      {DataType: "string"},
				"timestamp": {DataType: "string"},
			},
		})
	}
	return out, nil
}

func classifySlackError(err error) error {
	if rlErr, ok := err.(*slack.RateLimitedError); ok {
		return appErrors.Wrapf(rlErr, appErrors.ErrorTypeTimeout, "slack rate limited, retry after %s", rlErr.RetryAfter)
	}
	return appErrors.Wrap(err, appErrors.ErrorTypeAdapterSyntax, "slack request failed")
}
