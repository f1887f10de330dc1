package executor

import (
	"testing"

	"github.com/hardikgo/crossdb/internal/config"
)

func TestIncreaseLimitsCapsAtTwiceDefault(t *testing.T) {
	cfg := config.ExecutorConfig{PostgresLimit: 8}
	g := newGates(cfg)

	// Drive postgres's limit up repeatedly; it must never exceed 2x the
	// configured default of 8 (spec.md §4.5).
	for i := 0; i < 20; i++ {
		g.increaseLimits()
	}

	if got := g.backendLimits["postgres"]; got > 16 {
		t.Fatalf("postgres limit grew past the 2x-default ceiling: got %d, want <= 16", got)
	}
	if got := g.backendLimits["postgres"]; got != 16 {
		t.Fatalf("expected repeated increases to converge on the 2x-default ceiling of 16, got %d", got)
	}
}

func TestDecreaseLimitsFloorsAtOne(t *testing.T) {
	cfg := config.ExecutorConfig{GA4Limit: 1}
	g := newGates(cfg)

	for i := 0; i < 5; i++ {
		g.decreaseLimits()
	}

	if got := g.backendLimits["ga4"]; got != 1 {
		t.Fatalf("ga4 limit should floor at 1, got %d", got)
	}
}

func TestUnknownKindGetsDefaultLimitOfTwo(t *testing.T) {
	cfg := config.ExecutorConfig{}
	g := newGates(cfg)

	sem := g.backendSemaphore("shopify_plus")
	if sem == nil {
		t.Fatal("expected a semaphore for an unregistered kind")
	}
	if got := g.backendLimits["shopify_plus"]; got != 2 {
		t.Fatalf("unknown kind should default to limit 2, got %d", got)
	}
	if got := g.defaultLimits["shopify_plus"]; got != 2 {
		t.Fatalf("unknown kind's default limit should be tracked as 2, got %d", got)
	}
}
