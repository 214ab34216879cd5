package notify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"voicedesk-platform/pkg/utils"
)

// RedisGuard backs OnceGuard with a SET NX claim.
// The TTL only bounds claim leakage after a crash; exactly-once is still
// enforced by the conditional sms_sent flip in the database.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: 10 * time.Minute}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return utils.AcquireOnce(ctx, g.rdb, key, g.ttl)
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return utils.ReleaseOnce(ctx, g.rdb, key)
}
