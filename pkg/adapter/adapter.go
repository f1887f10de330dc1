// Package adapter implements AdapterPort (spec.md §4.8, C1): the
// abstract contract every concrete backend adapter satisfies, plus an
// AdapterFactory that caches adapter instances by source ID so
// concurrent operations on the same source share one connection,
// matching spec.md §5's "adapters are shared across concurrent
// operations on the same source."
package adapter

import (
	"context"
	"sync"

	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// Port is the contract each backend adapter must satisfy (spec.md
// §4.8). Implementations are provided by collaborators; the core
// talks only to this interface.
type Port interface {
	// TestConnection reports whether the adapter can currently reach
	// its backend. Errors are adapter_connection kind.
	TestConnection(ctx context.Context) (bool, error)

	// Execute runs one operation's variant-specific params against the
	// backend and returns its rows as generic maps. Error kinds:
	// adapter_connection, adapter_syntax, timeout, or internal
	// (covering spec.md §4.8's "permission"/"backend" sub-kinds, which
	// this module does not distinguish further — see
	// internal/errors.ErrorType).
	Execute(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error)

	// IntrospectSchema returns the backend's current table/collection
	// shapes, for registries that refresh from a live connection
	// rather than a static catalog.
	IntrospectSchema(ctx context.Context) ([]planmodel.TableDescriptor, error)
}

// Builder constructs a fresh Port for one source. Factory caches the
// first successfully built Port per source ID; concurrent first calls
// may each invoke the Builder, and a failed build is retried on the
// next Get.
type Builder func() (Port, error)

// Factory is a sync.Map-backed cache of adapters keyed by source ID,
// matching spec.md §4.8's "AdapterFactory keyed by source_id, with
// caching for connection reuse."
type Factory struct {
	builders sync.Map // source_id -> Builder
	cache    sync.Map // source_id -> Port
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Register associates a source ID with the builder used to construct
// its adapter the first time it is requested. Re-registering a source
// ID replaces its builder but does not evict an already-cached
// instance.
func (f *Factory) Register(sourceID string, build Builder) {
	f.builders.Store(sourceID, build)
}

// Get returns the cached adapter for sourceID, building and caching it
// on first use. Concurrent callers racing to build the same source ID
// converge on a single instance.
func (f *Factory) Get(sourceID string) (Port, error) {
	if cached, ok := f.cache.Load(sourceID); ok {
		return cached.(Port), nil
	}

	raw, ok := f.builders.Load(sourceID)
	if !ok {
		return nil, appErrors.NewSchemaUnknownError("source", sourceID)
	}
	build := raw.(Builder)

	adapter, err := build()
	if err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrorTypeAdapterConnection, "build adapter for source %q", sourceID)
	}

	actual, _ := f.cache.LoadOrStore(sourceID, adapter)
	return actual.(Port), nil
}
