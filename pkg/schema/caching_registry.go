package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// CachingRegistry decorates any RegistryPort with a Redis-backed
// read-through cache for SchemaSearch, the one capability spec.md
// §4.2 documents as possibly async/remote. Every other method passes
// straight through, since those are specified as local cache reads
// already.
type CachingRegistry struct {
	inner  RegistryPort
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingRegistry wraps inner with a Redis client and a cache TTL.
func NewCachingRegistry(inner RegistryPort, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachingRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingRegistry{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *CachingRegistry) ListSources(ctx context.Context) ([]planmodel.DataSource, error) {
	return c.inner.ListSources(ctx)
}

func (c *CachingRegistry) GetSource(ctx context.Context, id string) (*planmodel.DataSource, bool, error) {
	return c.inner.GetSource(ctx, id)
}

func (c *CachingRegistry) ListTables(ctx context.Context, sourceID string) ([]string, error) {
	return c.inner.ListTables(ctx, sourceID)
}

func (c *CachingRegistry) GetTable(ctx context.Context, sourceID, name string) (*planmodel.TableDescriptor, bool, error) {
	return c.inner.GetTable(ctx, sourceID, name)
}

func (c *CachingRegistry) ValidateSQL(ctx context.Context, sourceID, sql string) (ValidateSQLResult, error) {
	return c.inner.ValidateSQL(ctx, sourceID, sql)
}

func (c *CachingRegistry) ValidateCollection(ctx context.Context, sourceID, name string) (bool, error) {
	return c.inner.ValidateCollection(ctx, sourceID, name)
}

func (c *CachingRegistry) RecommendSources(ctx context.Context, question string) ([]string, error) {
	return c.inner.RecommendSources(ctx, question)
}

// SchemaSearch checks Redis first; on miss, it falls through to the
// wrapped registry and populates the cache. Cache errors are logged
// and treated as misses rather than surfaced to the caller — a cold
// or unreachable cache must never fail planning.
func (c *CachingRegistry) SchemaSearch(ctx context.Context, question, kind string, topK int) ([]SearchResult, error) {
	key := cacheKey(question, kind, topK)

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var cached []SearchResult
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn("schema cache read failed, falling back to registry", zap.Error(err), zap.String("key", key))
		}
	}

	results, err := c.inner.SchemaSearch(ctx, question, kind, topK)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if encoded, jsonErr := json.Marshal(results); jsonErr == nil {
			if setErr := c.client.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
				c.logger.Warn("schema cache write failed", zap.Error(setErr), zap.String("key", key))
			}
		}
	}

	return results, nil
}

func cacheKey(question, kind string, topK int) string {
	return fmt.Sprintf("crossdb:schema_search:%s:%s:%d", kind, question, topK)
}
