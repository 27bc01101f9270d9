package redis

import (
	"context"
	"fmt"
	"time"

	"sooicy-orders/internal/logger"

	"github.com/go-redis/redis/v8"
)

const DefaultLockTTL = 30 * time.Second

// unlockScript deletes the key only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis serialises mutations of a single order across service instances.
type Redis struct {
	Client *redis.Client
	Logger *logger.Logger
	TTL    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Redis{Client: client, Logger: log, TTL: ttl}
}

func lockKey(orderID int64) string {
	return fmt.Sprintf("order_lock:%d", orderID)
}

// LockOrder reports false when another owner holds the lock. The lock expires
// after TTL so a crashed holder cannot block the order forever.
func (r *Redis) LockOrder(ctx context.Context, orderID int64, owner string) (bool, error) {
	ok, err := r.Client.SetNX(ctx, lockKey(orderID), owner, r.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("lock order %d: %w", orderID, err)
	}
	if !ok {
		r.Logger.Debug("REDIS", fmt.Sprintf("Order #%d is locked by another request", orderID))
	}
	return ok, nil
}

// UnlockOrder is a no-op when the lock expired or belongs to someone else.
func (r *Redis) UnlockOrder(ctx context.Context, orderID int64, owner string) error {
	if err := unlockScript.Run(ctx, r.Client, []string{lockKey(orderID)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("unlock order %d: %w", orderID, err)
	}
	return nil
}

// IsLocked checks the lock without taking it.
func (r *Redis) IsLocked(ctx context.Context, orderID int64) (bool, error) {
	n, err := r.Client.Exists(ctx, lockKey(orderID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
