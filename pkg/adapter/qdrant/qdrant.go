// Package qdrant is a reference AdapterPort implementation exercising
// the qdrant backend kind (VectorOp operations), built around a
// vector-database driver pulled in for this adapter specifically; it
// follows the same New/Execute/IntrospectSchema shape as its postgres
// and mongo siblings.
package qdrant

import (
	"context"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// Adapter executes VectorOp operations against a single Qdrant
// collection host.
type Adapter struct {
	client *qdrant.Client
	logger *zap.Logger
}

// New dials host:port with the given API key (empty for no auth).
func New(host string, port int, apiKey string, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "connect to qdrant")
	}
	return &Adapter{client: client, logger: logger}, nil
}

// NewFromClient wraps an already-constructed *qdrant.Client (used by
// tests against a local qdrant container).
func NewFromClient(client *qdrant.Client, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, logger: logger}
}

func (a *Adapter) TestConnection(ctx context.Context) (bool, error) {
	if _, err := a.client.HealthCheck(ctx); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "qdrant health check failed")
	}
	return true, nil
}

// Execute runs op.Vector as a top-K similarity search, optionally
// constrained by op.Vector.Filter, against op.Vector.Collection.
func (a *Adapter) Execute(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error) {
	if op.Vector == nil {
		return nil, appErrors.New(appErrors.ErrorTypeAdapterSyntax, "qdrant adapter requires a VectorOp")
	}

	limit := uint64(op.Vector.TopK)
	req := &qdrant.QueryPoints{
		CollectionName: op.Vector.Collection,
		Query:          qdrant.NewQuery(op.Vector.Vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if op.Vector.Filter != nil {
		req.Filter = filterFromMap(op.Vector.Filter)
	}

	points, err := a.client.Query(ctx, req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "qdrant query failed")
	}

	out := make([]map[string]any, 0, len(points))
	for _, p := range points {
		row := map[string]any{
			"id":    pointIDToAny(p.GetId()),
			"score": p.GetScore(),
		}
		for k, v := range p.GetPayload() {
			row[k] = valueToAny(v)
		}
		out = append(out, row)
	}
	return out, nil
}

// IntrospectSchema describes each collection's configured vector
// dimension and distance metric as FieldMeta's vector extension
// fields (vector dim/metric for vector collections).
func (a *Adapter) IntrospectSchema(ctx context.Context) ([]planmodel.TableDescriptor, error) {
	collections, err := a.client.ListCollections(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "list qdrant collections")
	}

	out := make([]planmodel.TableDescriptor, 0, len(collections))
	for _, name := range collections {
		info, err := a.client.GetCollectionInfo(ctx, name)
		if err != nil {
			continue
		}
		dim, metric := vectorParamsOf(info)
		out = append(out, planmodel.TableDescriptor{
			Name: name,
			Fields: map[string]planmodel.FieldMeta{
				"vector": {DataType: "vector", VectorDim: dim, VectorMetric: metric},
			},
		})
	}
	return out, nil
}

func vectorParamsOf(info *qdrant.CollectionInfo) (dim int, metric string) {
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0, ""
	}
	return int(params.GetSize()), params.GetDistance().String()
}

func pointIDToAny(id *qdrant.PointId) any {
	if id == nil {
		return nil
	}
	if num := id.GetNum(); num != 0 {
		return num
	}
	return id.GetUuid()
}

func filterFromMap(filter map[string]any) *qdrant.Filter {
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for field, value := range filter {
		conditions = append(conditions, qdrant.NewMatch(field, toMatchString(value)))
	}
	return &qdrant.Filter{Must: conditions}
}

func toMatchString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func valueToAny(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_ListValue:
		items := make([]any, 0, len(k.ListValue.GetValues()))
		for _, iv := range k.ListValue.GetValues() {
			items = append(items, valueToAny(iv))
		}
		return items
	case *qdrant.Value_StructValue:
		out := map[string]any{}
		for sk, sv := range k.StructValue.GetFields() {
			out[sk] = valueToAny(sv)
		}
		return out
	default:
		return nil
	}
}
