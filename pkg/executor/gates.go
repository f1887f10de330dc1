package executor

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hardikgo/crossdb/internal/config"
)

// backendKinds are the database types the source's AdaptiveParallelismManager
// pre-creates a semaphore for (`database_pools`), plus "generic" for
// operations with no fixed backend.
var backendKinds = []string{"postgres", "mongodb", "qdrant", "slack", "shopify", "ga4", "generic"}

// gates owns every admission-control semaphore: one per backend kind,
// plus the two global caps. backendLimits tracks each semaphore's
// current weight so adaptive tuning can grow or shrink it between
// plan executions (`_increase_limits`/`_decrease_limits`).
type gates struct {
	mu            sync.Mutex
	backendSems   map[string]*semaphore.Weighted
	backendLimits map[string]int64

	// defaultLimits freezes each kind's configured limit at construction
	// time, so increaseLimits can enforce spec.md §4.5's "cap at 2x
	// default" — a constraint the original source's own
	// `_increase_limits` does not have, since it only tracks the
	// current (mutable) limit.
	defaultLimits map[string]int64

	globalWeight      *semaphore.Weighted
	globalConcurrency *semaphore.Weighted
}

func newGates(cfg config.ExecutorConfig) *gates {
	sems := make(map[string]*semaphore.Weighted, len(backendKinds))
	limits := make(map[string]int64, len(backendKinds))
	defaults := make(map[string]int64, len(backendKinds))
	for _, kind := range backendKinds {
		limit := int64(cfg.BackendLimit(kind))
		if limit < 1 {
			limit = 1
		}
		sems[kind] = semaphore.NewWeighted(limit)
		limits[kind] = limit
		defaults[kind] = limit
	}
	return &gates{
		backendSems:       sems,
		backendLimits:     limits,
		defaultLimits:     defaults,
		globalWeight:      semaphore.NewWeighted(int64(maxInt(cfg.MaxTotalWeight, 1))),
		globalConcurrency: semaphore.NewWeighted(int64(maxInt(cfg.MaxConcurrentOperations, 1))),
	}
}

// backendSemaphore returns the semaphore for kind, creating one with
// the default limit of 2 for any kind outside backendKinds (mirrors
// "no semaphore for db_type, using default").
func (g *gates) backendSemaphore(kind string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sem, ok := g.backendSems[kind]; ok {
		return sem
	}
	sem := semaphore.NewWeighted(2)
	g.backendSems[kind] = sem
	g.backendLimits[kind] = 2
	g.defaultLimits[kind] = 2
	return sem
}

// tryAdmitGlobal attempts to reserve one concurrency slot and weight
// units from the global gates without blocking. Callers that fail must
// not acquire a backend semaphore for this attempt.
func (g *gates) tryAdmitGlobal(weight int64) bool {
	if weight < 1 {
		weight = 1
	}
	if !g.globalConcurrency.TryAcquire(1) {
		return false
	}
	if !g.globalWeight.TryAcquire(weight) {
		g.globalConcurrency.Release(1)
		return false
	}
	return true
}

func (g *gates) releaseGlobal(weight int64) {
	if weight < 1 {
		weight = 1
	}
	g.globalWeight.Release(weight)
	g.globalConcurrency.Release(1)
}

// increaseLimits widens every backend semaphore by at most 20%,
// reproducing `_increase_limits`'s `min(current + 1, current * 1.2)`
// formula verbatim, quirks included: a backend at or below limit 4
// never actually grows, since `current * 1.2` rounds down below
// `current + 1` until current reaches 5. The result is then clamped to
// spec.md §4.5's "cap at 2x default" ceiling, which the original
// source's own formula omits.
func (g *gates) increaseLimits() map[string][2]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	changed := map[string][2]int64{}
	for kind, current := range g.backendLimits {
		grownByOne := current + 1
		scaled := int64(float64(current) * 1.2)
		next := grownByOne
		if scaled < next {
			next = scaled
		}
		if ceiling := g.defaultLimits[kind] * 2; next > ceiling {
			next = ceiling
		}
		if next > current {
			g.backendSems[kind] = semaphore.NewWeighted(next)
			g.backendLimits[kind] = next
			changed[kind] = [2]int64{current, next}
		}
	}
	return changed
}

// decreaseLimits narrows every backend semaphore by one, floored at 1
// (`_decrease_limits`).
func (g *gates) decreaseLimits() map[string][2]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	changed := map[string][2]int64{}
	for kind, current := range g.backendLimits {
		next := current - 1
		if next < 1 {
			next = 1
		}
		if next < current {
			g.backendSems[kind] = semaphore.NewWeighted(next)
			g.backendLimits[kind] = next
			changed[kind] = [2]int64{current, next}
		}
	}
	return changed
}

func (g *gates) limitsSnapshot() map[string]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int64, len(g.backendLimits))
	for k, v := range g.backendLimits {
		out[k] = v
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
