package adapter_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hardikgo/crossdb/pkg/adapter"
	"github.com/hardikgo/crossdb/pkg/planmodel"
)

type stubAdapter struct{ id string }

func (s *stubAdapter) TestConnection(ctx context.Context) (bool, error) { return true, nil }
func (s *stubAdapter) Execute(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error) {
	return []map[string]any{{"id": s.id}}, nil
}
func (s *stubAdapter) IntrospectSchema(ctx context.Context) ([]planmodel.TableDescriptor, error) {
	return nil, nil
}

func TestFactoryGet_BuildsOnce(t *testing.T) {
	f := adapter.NewFactory()
	var builds int32
	f.Register("postgres_main", func() (adapter.Port, error) {
		atomic.AddInt32(&builds, 1)
		return &stubAdapter{id: "postgres_main"}, nil
	})

	a1, err := f.Get("postgres_main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, err := f.Get("postgres_main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a1 != a2 {
		t.Fatal("expected the same cached adapter instance")
	}
	if builds != 1 {
		t.Fatalf("expected builder to run exactly once, ran %d times", builds)
	}
}

func TestFactoryGet_UnknownSource(t *testing.T) {
	f := adapter.NewFactory()
	if _, err := f.Get("nonexistent"); err == nil {
		t.Fatal("expected error for unregistered source id")
	}
}

func TestFactoryGet_ConcurrentBuildersConverge(t *testing.T) {
	f := adapter.NewFactory()
	var builds int32
	f.Register("mongodb_main", func() (adapter.Port, error) {
		atomic.AddInt32(&builds, 1)
		return &stubAdapter{id: "mongodb_main"}, nil
	})

	var wg sync.WaitGroup
	results := make([]adapter.Port, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := f.Get("mongodb_main")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = a
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("expected all concurrent callers to converge on one adapter instance")
		}
	}
}

func TestFactoryGet_BuilderError(t *testing.T) {
	f := adapter.NewFactory()
	f.Register("broken", func() (adapter.Port, error) {
		return nil, fmt.Errorf("boom")
	})
	if _, err := f.Get("broken"); err == nil {
		t.Fatal("expected the builder's error to propagate")
	}
}
