package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"potencialize/internal/apperr"
)

var releaseScript = redislib.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis implements Locker with SET NX PX and a token-checked release.
type Redis struct {
	client *redislib.Client
	prefix string
	retry  time.Duration
}

func NewRedis(client *redislib.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "lock:"
	}
	return &Redis{client: client, prefix: prefix, retry: 50 * time.Millisecond}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	full := r.prefix + key

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, full, token, ttl).Result()
		if err != nil && !errors.Is(err, redislib.Nil) {
			return nil, apperr.Transient(fmt.Errorf("acquire %s: %w", key, err))
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// the caller's context may already be cancelled here
					releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					releaseScript.Run(releaseCtx, r.client, []string{full}, token) //nolint:errcheck
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, apperr.Transient(fmt.Errorf("acquire %s: %w", key, ctx.Err()))
		case <-ticker.C:
		}
	}
}
