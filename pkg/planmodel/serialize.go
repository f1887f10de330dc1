package planmodel

import (
	"encoding/json"
	"fmt"
)

// dbTypeForKind maps an OperationKind to the "db_type" discriminator
// used on the wire (spec.md §6). It doubles as the adapter backend
// kind used for semaphore bucketing in the executor.
var dbTypeForKind = map[OperationKind]string{
	KindSQL:       "postgres",
	KindMongo:     "mongodb",
	KindVector:    "qdrant",
	KindMessaging: "slack",
	KindCommerce:  "shopify",
	KindGeneric:   "",
}

var kindForDBType = map[string]OperationKind{
	"postgres": KindSQL,
	"mongodb":  KindMongo,
	"qdrant":   KindVector,
	"slack":    KindMessaging,
	"shopify":  KindCommerce,
	"ga4":      KindCommerce,
}

// BackendKindFor returns the adapter backend kind (the executor's
// semaphore-bucketing key) for an operation kind, or "" for KindGeneric
// operations, which have no fixed backend.
func BackendKindFor(kind OperationKind) string {
	return dbTypeForKind[kind]
}

// wireOperation is the on-the-wire shape of spec.md §6's plan
// serialization block. params is kept as a raw map so each variant can
// marshal/unmarshal its own keys (query/pipeline/vector/...).
type wireOperation struct {
	ID            string            `json:"id"`
	SourceID      *string           `json:"source_id"`
	DBType        *string           `json:"db_type"`
	DependsOn     []string          `json:"depends_on"`
	Metadata      OperationMetadata `json:"metadata"`
	Params        map[string]any    `json:"params"`
	Status        OperationStatus   `json:"status"`
	Result        any               `json:"result"`
	Error         *string           `json:"error"`
	ExecutionTime float64           `json:"execution_time"`
}

// MarshalJSON renders an Operation to the bit-exact wire shape of
// spec.md §6, keying "params" by the variant in play.
func (o *Operation) MarshalJSON() ([]byte, error) {
	w := wireOperation{
		ID:            o.ID,
		SourceID:      o.SourceID,
		DependsOn:     o.DependsOn,
		Metadata:      o.Metadata,
		Status:        o.Status,
		Result:        o.Result,
		ExecutionTime: o.ExecutionTime.Seconds(),
	}
	if dbType, ok := dbTypeForKind[o.Kind]; ok && dbType != "" {
		w.DBType = &dbType
	}
	if o.Error != "" {
		w.Error = &o.Error
	}

	params := map[string]any{}
	switch o.Kind {
	case KindSQL:
		if o.SQL != nil {
			params["query"] = o.SQL.SQL
			params["params"] = o.SQL.Params
		}
	case KindMongo:
		if o.Mongo != nil {
			params["collection"] = o.Mongo.Collection
			if o.Mongo.Pipeline != nil {
				params["pipeline"] = o.Mongo.Pipeline
			}
			if o.Mongo.Filter != nil {
				params["query"] = o.Mongo.Filter
			}
			if o.Mongo.Projection != nil {
				params["projection"] = o.Mongo.Projection
			}
		}
	case KindVector:
		if o.Vector != nil {
			params["collection"] = o.Vector.Collection
			params["vector"] = o.Vector.Vector
			if o.Vector.Filter != nil {
				params["filter"] = o.Vector.Filter
			}
			params["limit"] = o.Vector.TopK
		}
	case KindMessaging:
		if o.Messaging != nil {
			params["channel"] = o.Messaging.Channel
			params["query"] = o.Messaging.Query
			if o.Messaging.TimeRange != nil {
				params["time_range"] = o.Messaging.TimeRange
			}
			params["limit"] = o.Messaging.Limit
		}
	case KindCommerce:
		if o.Commerce != nil {
			params["endpoint"] = o.Commerce.Endpoint
			params["query_params"] = o.Commerce.QueryParams
			params["method"] = o.Commerce.Method
			params["limit"] = o.Commerce.Limit
		}
	case KindGeneric:
		params = o.Generic
	}
	w.Params = params

	return json.Marshal(w)
}

// UnmarshalJSON parses spec.md §6's wire shape back into a tagged
// Operation, inferring Kind from db_type (falling back to sniffing
// the params keys for payloads that omit db_type, e.g. hand-authored
// generic ops) — unknown db_type values decode to KindGeneric
// rather than erroring, since JSON decode must tolerate unknown fields
// per spec.md §4.1; kind-validity is re-checked by Validate.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	o.ID = w.ID
	o.SourceID = w.SourceID
	o.DependsOn = w.DependsOn
	o.Metadata = w.Metadata
	o.Status = w.Status
	o.Result = w.Result
	if w.Error != nil {
		o.Error = *w.Error
	}
	o.ExecutionTime = durationFromSeconds(w.ExecutionTime)

	kind := KindGeneric
	if w.DBType != nil {
		if k, ok := kindForDBType[*w.DBType]; ok {
			kind = k
		}
	} else {
		kind = sniffKind(w.Params)
	}
	o.Kind = kind

	built, err := OperationFor(o.ID, kind, o.SourceID, w.Params, o.DependsOn, o.Metadata)
	if err != nil {
		return fmt.Errorf("planmodel: decode operation %s: %w", o.ID, err)
	}
	built.Status = o.Status
	built.Result = o.Result
	built.Error = o.Error
	built.ExecutionTime = o.ExecutionTime
	*o = *built
	return nil
}

// sniffKind recognizes a variant from its params keys when db_type is
// absent from the wire payload.
func sniffKind(params map[string]any) OperationKind {
	if _, ok := params["collection"]; ok {
		if _, ok := params["vector"]; ok {
			return KindVector
		}
		return KindMongo
	}
	if _, ok := params["endpoint"]; ok {
		return KindCommerce
	}
	if _, ok := params["channel"]; ok {
		return KindMessaging
	}
	if _, ok := params["query"]; ok {
		if _, hasParams := params["params"]; hasParams {
			return KindSQL
		}
	}
	return KindGeneric
}
