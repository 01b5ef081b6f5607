package consent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"custos/internal/consent/metrics"
	id "custos/pkg/domain"
)

// statusCacheTTL is the ceiling on a cached positive answer; the service
// caps the actual ttl at the grant's remaining lifetime.
const statusCacheTTL = 5 * time.Minute

// RedisStatusCache caches positive consent answers in Redis. It is strictly
// best-effort: any Redis failure is logged and reported as a miss, so the
// caller falls back to the durable store. Negative answers are never cached;
// a revocation must be visible immediately.
type RedisStatusCache struct {
	client  goredis.Cmdable
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type CacheOption func(*RedisStatusCache)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *RedisStatusCache) { c.logger = logger }
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *RedisStatusCache) { c.metrics = m }
}

func NewRedisStatusCache(client goredis.Cmdable, opts ...CacheOption) *RedisStatusCache {
	cache := &RedisStatusCache{client: client}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func cacheKey(subject id.SubjectID, scope id.ConsentScope) string {
	return "consent:status:" + subject.String() + ":" + string(scope)
}

func (c *RedisStatusCache) Get(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) (StatusResult, bool) {
	payload, err := c.client.Get(ctx, cacheKey(subject, scope)).Bytes()
	if err != nil {
		if err != goredis.Nil && c.logger != nil {
			c.logger.WarnContext(ctx, "consent cache read failed", "error", err)
		}
		c.miss()
		return StatusResult{}, false
	}

	var result StatusResult
	if err := json.Unmarshal(payload, &result); err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "consent cache entry corrupt", "error", err)
		}
		c.miss()
		return StatusResult{}, false
	}
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
	return result, true
}

func (c *RedisStatusCache) Set(ctx context.Context, subject id.SubjectID, scope id.ConsentScope, result StatusResult, ttl time.Duration) {
	if !result.HasConsent || ttl <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(subject, scope), payload, ttl).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "consent cache write failed", "error", err)
	}
}

func (c *RedisStatusCache) Invalidate(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) {
	if err := c.client.Del(ctx, cacheKey(subject, scope)).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "consent cache invalidation failed", "error", err)
	}
}

func (c *RedisStatusCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}
