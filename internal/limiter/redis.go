package limiter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
)

// commands is the slice of the Redis API the guard uses. *redis.Client
// satisfies it.
type commands interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisGuard is the shared-store burst guard, for deployments with more
// than one instance. Fixed-window counter: INCR plus an expiry set on the
// first hit. Fails open when Redis is unreachable.
type RedisGuard struct {
	client    commands
	perWindow int
	window    time.Duration
}

func NewRedisGuard(client commands, perWindow int, window time.Duration) *RedisGuard {
	return &RedisGuard{client: client, perWindow: perWindow, window: window}
}

func (g *RedisGuard) Allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// Keys are hashed so raw addresses never land in Redis.
	sum := sha256.Sum256([]byte(key))
	redisKey := "burst:" + hex.EncodeToString(sum[:])

	count, err := g.client.Incr(ctx, redisKey).Result()
	if err != nil {
		logger.WarnContext(ctx, "redis burst guard unavailable, allowing request", "error", err)
		return true
	}

	// The window starts at the first hit and must be allowed to lapse.
	// Refreshing the expiry on later hits would let a slow steady source
	// count up to the threshold and stay locked out.
	if count == 1 {
		if err := g.client.Expire(ctx, redisKey, g.window).Err(); err != nil {
			logger.WarnContext(ctx, "failed to set burst window expiry", "error", err)
		}
	}

	return count <= int64(g.perWindow)
}
