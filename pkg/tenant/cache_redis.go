package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces resolution entries; redisTenantPrefix holds the
// per-tenant key sets used for invalidation.
const (
	redisKeyPrefix    = "tenantkit:resolve:"
	redisTenantPrefix = "tenantkit:resolve:tenant:"
)

// RedisCache shares resolution entries across processes. Entries are stored
// as JSON with a server-side TTL; each tenant additionally gets a set of its
// cached keys so InvalidateTenant can evict them all in one round-trip.
//
// Redis failures degrade to cache misses on the read path. Invalidation
// failures are returned to the caller: a lifecycle write must not report
// success while stale entries may still resolve.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a Redis-backed resolution cache.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	if client == nil {
		panic("tenant: redis cache requires a client")
	}
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Unreadable entries are treated as misses and dropped.
		c.client.Del(ctx, redisKeyPrefix+key)
		return Entry{}, false
	}
	return e, true
}

func (c *RedisCache) Set(ctx context.Context, key string, e Entry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, redisKeyPrefix+key, data, ttl)
	tenantSet := redisTenantPrefix + e.Tenant.ID.String()
	pipe.SAdd(ctx, tenantSet, key)
	// The set outlives its longest entry slightly so invalidation never
	// misses a key that is still live.
	pipe.Expire(ctx, tenantSet, ttl+time.Minute)
	_, _ = pipe.Exec(ctx)
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	c.client.Del(ctx, redisKeyPrefix+key)
}

func (c *RedisCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	tenantSet := redisTenantPrefix + tenantID.String()

	keys, err := c.client.SMembers(ctx, tenantSet).Result()
	if err != nil {
		return err
	}

	targets := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		targets = append(targets, redisKeyPrefix+key)
	}
	targets = append(targets, tenantSet)

	return c.client.Del(ctx, targets...).Err()
}

func (c *RedisCache) Close() error {
	// The client is shared infrastructure owned by the caller.
	return nil
}
