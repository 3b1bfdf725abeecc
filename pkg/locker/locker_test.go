package locker

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLockExcludes(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rc.Close()

	a := NewRedis(rc, 5*time.Second, slog.Default())
	b := NewRedis(rc, 5*time.Second, slog.Default())
	ctx := context.Background()

	var (
		mu     sync.Mutex
		inside int
		maxIn  int
		wg     sync.WaitGroup
	)
	for i, l := range []Locker{a, b, a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "room:lobby")
			if !assert.NoError(t, err, "locker %d", i) {
				return
			}
			mu.Lock()
			inside++
			maxIn = max(maxIn, inside)
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxIn)
}

func TestNoopLock(t *testing.T) {
	unlock, err := Noop{}.Lock(context.Background(), "x")
	require.NoError(t, err)
	unlock()
}
