package testutil

import (
	"context"
	"fmt"

	"github.com/hardikgo/crossdb/pkg/planmodel"
	"github.com/hardikgo/crossdb/pkg/schema"
)

// FakeRegistry wraps a StaticRegistry and adds error injection, so
// tests can exercise failure paths (unknown source, schema_search
// errors) without fragile catalog gymnastics.
type FakeRegistry struct {
	*schema.StaticRegistry

	// FailSchemaSearch, if true, makes SchemaSearch always return an
	// error — used to exercise pkg/planning's early-return on schema
	// retrieval failure.
	FailSchemaSearch bool

	// UnknownSources, if set, makes GetSource report these IDs as not
	// found even if present in the underlying catalog — used to
	// exercise plan validation's source-resolution check.
	UnknownSources map[string]bool
}

// NewFakeRegistry builds a FakeRegistry over a fixed catalog.
func NewFakeRegistry(sources []planmodel.DataSource, tables []planmodel.TableDescriptor) *FakeRegistry {
	return &FakeRegistry{
		StaticRegistry: schema.NewStaticRegistry(sources, tables),
		UnknownSources: map[string]bool{},
	}
}

func (f *FakeRegistry) GetSource(ctx context.Context, id string) (*planmodel.DataSource, bool, error) {
	if f.UnknownSources[id] {
		return nil, false, nil
	}
	return f.StaticRegistry.GetSource(ctx, id)
}

func (f *FakeRegistry) SchemaSearch(ctx context.Context, question, kind string, topK int) ([]schema.SearchResult, error) {
	if f.FailSchemaSearch {
		return nil, fmt.Errorf("fakeRegistry: simulated schema_search failure")
	}
	return f.StaticRegistry.SchemaSearch(ctx, question, kind, topK)
}
