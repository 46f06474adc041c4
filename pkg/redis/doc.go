// Package redis connects the isolation layer to Redis.
//
// Two consumers share one client: the distributed resolution cache
// (tenant.RedisCache) and the fixed-window request limiter
// (quota.RedisLimiter). Connect retries until the server is reachable and
// Healthcheck plugs into readiness probes.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	cache := tenant.NewRedisCache(client)
//	limiter := quota.NewRedisLimiter(client)
package redis
