package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tenantkit:quota:requests:"

// RedisLimiter meters request rates with fixed hourly windows shared
// across process instances: one INCR per request, the counter expiring
// with its window. Bursts ride on top of the hourly limit as an extended
// allowance within the current window.
type RedisLimiter struct {
	client redis.UniversalClient
}

// NewRedisLimiter creates a limiter over the given redis client.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	if client == nil {
		panic("quota: redis client is required")
	}
	return &RedisLimiter{client: client}
}

// Allow counts the request against the key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int64, burst int) (*Result, error) {
	now := time.Now()

	if limit == Unlimited {
		return &Result{Allowed: true, Limit: Unlimited, Remaining: Unlimited, ResetAt: now}, nil
	}

	window := now.Truncate(RateWindow)
	resetAt := window.Add(RateWindow)
	redisKey := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, window.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// Expire slightly past the window so slow readers still see the count.
	pipe.Expire(ctx, redisKey, RateWindow+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Join(ErrLimiterDown, err)
	}

	current := incr.Val()
	allowance := limit + int64(burst)
	remaining := allowance - current
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   current <= allowance,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
