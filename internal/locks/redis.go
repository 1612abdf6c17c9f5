package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Lock acquisition parameters.
const (
	lockTTL        = 15 * time.Second
	acquireTimeout = 5 * time.Second
	retryInterval  = 50 * time.Millisecond
)

// RedisLocker serializes ledger operations across instances sharing one
// database. Locks expire after a TTL so a crashed holder cannot wedge an
// owner's ledger.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker connects to Redis at addr. Returns nil when addr is empty,
// disabling distributed locking.
func NewRedisLocker(addr string) *RedisLocker {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisLocker{client: client}
}

// Acquire takes the named lock, polling until the acquire timeout. The
// returned release function deletes the lock and is safe to call once.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	deadline := time.Now().Add(acquireTimeout)
	lockKey := "lock:" + key

	for {
		ok, errSet := l.client.SetNX(ctx, lockKey, 1, lockTTL).Result()
		if errSet != nil {
			return nil, fmt.Errorf("locks: setnx %s: %w", lockKey, errSet)
		}
		if ok {
			return func() {
				if errDel := l.client.Del(context.Background(), lockKey).Err(); errDel != nil {
					log.WithError(errDel).WithField("key", lockKey).Warn("release lock failed")
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("locks: timeout acquiring %s", lockKey)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Ping verifies connectivity at startup.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
