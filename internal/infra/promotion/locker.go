package promotion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes promotion runs per slot across processes.
type Locker interface {
	Acquire(ctx context.Context, slotID uuid.UUID) (bool, func(), error)
}

const lockTTL = 15 * time.Second

type redisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, slotID uuid.UUID) (bool, func(), error) {
	key := "promotion:slot:" + slotID.String()
	ok, err := l.client.SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, func() {}, nil
	}
	release := func() {
		// Best effort; the TTL covers a crashed holder.
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		l.client.Del(rctx, key)
	}
	return true, release, nil
}

// NoopLocker serializes nothing. Used in tests and single-process
// deployments where the database guard alone is acceptable.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, uuid.UUID) (bool, func(), error) {
	return true, func() {}, nil
}
