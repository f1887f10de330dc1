package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// StaticRegistry is an in-memory RegistryPort backed by a fixed
// catalog of sources and tables, loaded once at construction. It is
// the reference implementation used by the demo binary and by tests
// (pkg/testutil wraps a StaticRegistry with fakeable overrides).
//
// Reads are served under an RWMutex; the only expected writer is a
// single background refresh goroutine, following a "read-mostly,
// single-writer refresh" discipline.
type StaticRegistry struct {
	mu      sync.RWMutex
	sources map[string]planmodel.DataSource
	tables  map[string]map[string]planmodel.TableDescriptor // sourceID -> name -> table
}

// NewStaticRegistry builds a registry from a fixed catalog.
func NewStaticRegistry(sources []planmodel.DataSource, tables []planmodel.TableDescriptor) *StaticRegistry {
	r := &StaticRegistry{
		sources: make(map[string]planmodel.DataSource, len(sources)),
		tables:  make(map[string]map[string]planmodel.TableDescriptor),
	}
	for _, s := range sources {
		r.sources[s.ID] = s
	}
	for _, t := range tables {
		if r.tables[t.SourceID] == nil {
			r.tables[t.SourceID] = make(map[string]planmodel.TableDescriptor)
		}
		r.tables[t.SourceID][t.Name] = t
	}
	return r
}

// Refresh atomically swaps in a new catalog snapshot, the single
// allowed writer path.
func (r *StaticRegistry) Refresh(sources []planmodel.DataSource, tables []planmodel.TableDescriptor) {
	next := NewStaticRegistry(sources, tables)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = next.sources
	r.tables = next.tables
}

func (r *StaticRegistry) ListSources(ctx context.Context) ([]planmodel.DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]planmodel.DataSource, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *StaticRegistry) GetSource(ctx context.Context, id string) (*planmodel.DataSource, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (r *StaticRegistry) ListTables(ctx context.Context, sourceID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.sources[sourceID]; !ok {
		return nil, fmt.Errorf("schema: unknown source %q", sourceID)
	}
	names := make([]string, 0, len(r.tables[sourceID]))
	for name := range r.tables[sourceID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *StaticRegistry) GetTable(ctx context.Context, sourceID, name string) (*planmodel.TableDescriptor, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[sourceID][name]
	if !ok {
		return nil, false, nil
	}
	return &t, true, nil
}

// ValidateSQL performs a shallow structural check: the source is known
// and the statement is non-empty. Table names the statement references
// are not checked. This is not a SQL parser — it is a
// "best-effort sanity check, not a query planner" posture, the same
// one this codebase's webhook payload validation applies.
func (r *StaticRegistry) ValidateSQL(ctx context.Context, sourceID, sql string) (ValidateSQLResult, error) {
	if _, ok, _ := r.GetSource(ctx, sourceID); !ok {
		return ValidateSQLResult{}, fmt.Errorf("schema: unknown source %q", sourceID)
	}
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ValidateSQLResult{Valid: false, Errors: []string{"empty sql statement"}}, nil
	}
	return ValidateSQLResult{Valid: true}, nil
}

func (r *StaticRegistry) ValidateCollection(ctx context.Context, sourceID, name string) (bool, error) {
	if _, ok, _ := r.GetSource(ctx, sourceID); !ok {
		return false, fmt.Errorf("schema: unknown source %q", sourceID)
	}
	_, ok, err := r.GetTable(ctx, sourceID, name)
	return ok, err
}

// RecommendSources does a crude keyword-over-table-name match as a
// deterministic fallback; pkg/planning's classifier layers its own
// richer rule-based fallback on top of whatever this returns.
func (r *StaticRegistry) RecommendSources(ctx context.Context, question string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(question)
	seen := map[string]bool{}
	var out []string
	for sourceID, tables := range r.tables {
		for name := range tables {
			if strings.Contains(q, strings.ToLower(name)) && !seen[sourceID] {
				seen[sourceID] = true
				out = append(out, sourceID)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// SchemaSearch scores each known table by naive term overlap with the
// question. Real deployments wrap this in CachingRegistry and/or
// replace it with a vector-index-backed implementation; this is the
// reference path exercised by tests and the demo binary.
func (r *StaticRegistry) SchemaSearch(ctx context.Context, question, kind string, topK int) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(question))
	var results []SearchResult
	for sourceID, tables := range r.tables {
		src := r.sources[sourceID]
		if kind != "" && src.Kind != kind {
			continue
		}
		for _, t := range tables {
			score := scoreOverlap(terms, t.Name)
			if score <= 0 {
				continue
			}
			results = append(results, SearchResult{
				Score:   score,
				Content: fmt.Sprintf("%s.%s", sourceID, t.Name),
				Metadata: map[string]any{
					"source_id": sourceID,
					"table":     t.Name,
				},
			})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func scoreOverlap(terms []string, name string) float64 {
	lowered := strings.ToLower(name)
	var hits float64
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			hits++
		}
	}
	return hits
}
