// Package cache wraps an optional Redis client for short-lived report
// caching. When REDIS_ADDR is unset the client stays nil and every lookup
// is a miss, so the portal runs fine without Redis.
package cache

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

func Connect() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		slog.Warn("REDIS_ADDR not set, report caching disabled")
		return
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		slog.Error("could not connect to Redis, caching disabled", "error", err)
		return
	}

	RDB = client
	slog.Info("connected to Redis", "addr", addr)
}

// Get returns the cached payload for key, or "" on a miss (or when Redis
// is disabled or unreachable).
func Get(ctx context.Context, key string) string {
	if RDB == nil {
		return ""
	}
	val, err := RDB.Get(ctx, key).Result()
	if err != nil {
		return ""
	}
	return val
}

// Set stores a payload best-effort; cache failures are not worth failing
// a report over.
func Set(ctx context.Context, key, val string, ttl time.Duration) {
	if RDB == nil {
		return
	}
	if err := RDB.Set(ctx, key, val, ttl).Err(); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops a cached key after a write that makes it stale.
func Invalidate(ctx context.Context, keys ...string) {
	if RDB == nil {
		return
	}
	if err := RDB.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache invalidation failed", "error", err)
	}
}
