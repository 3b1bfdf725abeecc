package locker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker serializes work on a key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Noop struct{}

func (Noop) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

type Redis struct {
	rs     *redsync.Redsync
	expiry time.Duration
	logger *slog.Logger
}

func NewRedis(client redis.UniversalClient, expiry time.Duration, logger *slog.Logger) *Redis {
	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
		logger: logger,
	}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex("lock:"+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(64),
		redsync.WithRetryDelay(25*time.Millisecond),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	return func() {
		if _, err := mutex.Unlock(); err != nil {
			l.logger.ErrorContext(ctx, "failed to unlock mutex", "key", key, "error", err)
		}
	}, nil
}
