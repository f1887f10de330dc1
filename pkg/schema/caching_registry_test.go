package schema_test

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hardikgo/crossdb/pkg/planmodel"
	"github.com/hardikgo/crossdb/pkg/schema"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// countingRegistry wraps a StaticRegistry and counts SchemaSearch
// calls, so tests can assert the cache actually avoids a second call
// to the wrapped registry.
type countingRegistry struct {
	*schema.StaticRegistry
	searchCalls int
}

func (c *countingRegistry) SchemaSearch(ctx context.Context, question, kind string, topK int) ([]schema.SearchResult, error) {
	c.searchCalls++
	return c.StaticRegistry.SchemaSearch(ctx, question, kind, topK)
}

var _ = Describe("CachingRegistry", func() {
	var (
		ctx       context.Context
		mr        *miniredis.Miniredis
		client    *redis.Client
		inner     *countingRegistry
		caching   *schema.CachingRegistry
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		inner = &countingRegistry{StaticRegistry: fixtureRegistry()}
		caching = schema.NewCachingRegistry(inner, client, 0, zap.NewNop())
	})

	AfterEach(func() {
		mr.Close()
	})

	It("serves a cold SchemaSearch from the wrapped registry and caches the result", func() {
		first, err := caching.SchemaSearch(ctx, "show me all orders", "", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.searchCalls).To(Equal(1))

		second, err := caching.SchemaSearch(ctx, "show me all orders", "", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.searchCalls).To(Equal(1), "second call should be served from cache")
		Expect(second).To(Equal(first))
	})

	It("falls back to the wrapped registry when redis is unreachable", func() {
		mr.Close()
		results, err := caching.SchemaSearch(ctx, "show me all orders", "", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).NotTo(BeEmpty())
		Expect(inner.searchCalls).To(Equal(1))
	})

	It("passes every other method straight through to the wrapped registry", func() {
		sources, err := caching.ListSources(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sources).To(HaveLen(2))

		_, ok, err := caching.GetSource(ctx, "postgres_main")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("planmodel.SourceResolver compatibility", func() {
	It("accepts a RegistryPort as a SourceResolver", func() {
		var resolver planmodel.SourceResolver = fixtureRegistry()
		_, ok, err := resolver.GetSource(context.Background(), "postgres_main")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})
})
