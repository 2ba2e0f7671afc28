package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/umuco/heritage-gateway/internal/storage"
)

// RedisBackend counts against the shared Redis store, so the window is
// consistent across gateway instances. INCR is atomic per key; the
// first increment in a window arms the expiry.
type RedisBackend struct {
	redis *storage.RedisClient
}

func NewRedisBackend(redis *storage.RedisClient) *RedisBackend {
	return &RedisBackend{redis: redis}
}

func (b *RedisBackend) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := b.redis.Incr(ctx, redisKey)
	if err != nil {
		return 0, 0, err
	}

	if count == 1 {
		if err := b.redis.PExpire(ctx, redisKey, window); err != nil {
			return 0, 0, err
		}
	}

	ttl, err := b.redis.PTTL(ctx, redisKey)
	if err != nil {
		return 0, 0, err
	}

	// A key with no expiry means the PEXPIRE of a previous window was
	// lost (e.g. Redis restarted mid-window). Re-arm rather than leave
	// the counter immortal.
	if ttl < 0 {
		if err := b.redis.PExpire(ctx, redisKey, window); err != nil {
			return 0, 0, err
		}
		ttl = window
	}

	return count, ttl, nil
}
