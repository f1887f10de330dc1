// Package mongo is a reference AdapterPort implementation exercising
// the mongodb backend kind (MongoOp operations). The teacher's own
// go.mod carries no Mongo driver, so this component's dependency is
// pack-sourced (SPEC_FULL.md §3) rather than teacher-grounded; its
// shape (adapter wraps one *mongo.Database, Execute dispatches on the
// operation's pipeline-vs-filter payload) follows the postgres
// reference adapter alongside it.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// Adapter executes MongoOp operations against a single Mongo database.
type Adapter struct {
	db     *mongo.Database
	logger *zap.Logger
}

// New connects to connectionURI and selects database dbName.
func New(ctx context.Context, connectionURI, dbName string, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionURI))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "connect to mongodb")
	}
	return &Adapter{db: client.Database(dbName), logger: logger}, nil
}

// NewFromDatabase wraps an already-connected *mongo.Database (used by
// tests against an in-memory or containerized mongod).
func NewFromDatabase(db *mongo.Database, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{db: db, logger: logger}
}

func (a *Adapter) TestConnection(ctx context.Context) (bool, error) {
	if err := a.db.Client().Ping(ctx, nil); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "ping mongodb")
	}
	return true, nil
}

// Execute runs op.Mongo's pipeline (if set) via Aggregate, or its
// filter/projection via Find, against op.Mongo.Collection.
func (a *Adapter) Execute(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error) {
	if op.Mongo == nil {
		return nil, appErrors.New(appErrors.ErrorTypeAdapterSyntax, "mongo adapter requires a MongoOp")
	}
	coll := a.db.Collection(op.Mongo.Collection)

	var cursor *mongo.Cursor
	var err error
	switch {
	case len(op.Mongo.Pipeline) > 0:
		pipeline := make(bson.A, 0, len(op.Mongo.Pipeline))
		for _, stage := range op.Mongo.Pipeline {
			pipeline = append(pipeline, bson.M(stage))
		}
		cursor, err = coll.Aggregate(ctx, pipeline)
	default:
		findOpts := options.Find()
		if op.Mongo.Projection != nil {
			findOpts.SetProjection(bson.M(op.Mongo.Projection))
		}
		cursor, err = coll.Find(ctx, bson.M(op.Mongo.Filter), findOpts)
	}
	if err != nil {
		return nil, classifyMongoError(err)
	}
	defer cursor.Close(ctx)

	var out []map[string]any
	for cursor.Next(ctx) {
		var doc bson.M
		if decodeErr := cursor.Decode(&doc); decodeErr != nil {
			return nil, appErrors.Wrap(decodeErr, appErrors.ErrorTypeInternal, "decode mongo document")
		}
		out = append(out, normalizeDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, classifyMongoError(err)
	}
	return out, nil
}

// IntrospectSchema lists collection names; field shapes are not
// introspected from live documents, matching spec.md §4.8's note that
// introspection is adapter-specific best-effort.
func (a *Adapter) IntrospectSchema(ctx context.Context) ([]planmodel.TableDescriptor, error) {
	names, err := a.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "list mongodb collections")
	}
	out := make([]planmodel.TableDescriptor, 0, len(names))
	for _, name := range names {
		out = append(out, planmodel.TableDescriptor{Name: name, Fields: map[string]planmodel.FieldMeta{}})
	}
	return out, nil
}

// normalizeDocument stringifies ObjectIDs so downstream aggregation's
// type-coercion rules (spec.md §4.6) see the canonical 24-hex form
// rather than a driver-specific struct.
func normalizeDocument(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if oid, ok := v.(interface{ Hex() string }); ok {
			out[k] = oid.Hex()
			continue
		}
		out[k] = v
	}
	return out
}

func classifyMongoError(err error) error {
	if mongo.IsTimeout(err) {
		return appErrors.Wrap(err, appErrors.ErrorTypeTimeout, "mongo operation timed out")
	}
	if mongo.IsNetworkError(err) {
		return appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "mongo network error")
	}
	return appErrors.Wrap(err, appErrors.ErrorTypeAdapterSyntax, "mongo operation failed")
}
