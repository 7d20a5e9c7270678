package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	keyPrefix     = "clanbot:lock:"
	retryInterval = 25 * time.Millisecond
	releaseBudget = 2 * time.Second
)

// Redis holds keys with SET NX and a per-acquisition token so that only the
// owner can delete them. The TTL bounds how long a crashed owner blocks others.
type Redis struct {
	client      *redis.Client
	script      *redis.Script
	ttl         time.Duration
	waitTimeout time.Duration
	log         *zap.Logger
}

func NewRedis(client *redis.Client, ttl, waitTimeout time.Duration, log *zap.Logger) *Redis {
	return &Redis{
		client:      client,
		script:      redis.NewScript(lockReleaseScript),
		ttl:         ttl,
		waitTimeout: waitTimeout,
		log:         log.Named("lock.redis"),
	}
}

func (l *Redis) Acquire(ctx context.Context, keys ...string) (Release, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("lock client not configured")
	}
	if l.ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}

	keys = normalizeKeys(keys)
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	token := uuid.NewString()
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := l.acquireOne(ctx, keyPrefix+key, token); err != nil {
			l.releaseAll(held, token)
			return nil, err
		}
		held = append(held, keyPrefix+key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(held, token) })
	}, nil
}

func (l *Redis) acquireOne(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s: %v", ErrTimeout, key, ctx.Err())
			}
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// releaseAll runs on its own deadline because the caller's context may already be done.
func (l *Redis) releaseAll(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseBudget)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		if err := l.script.Run(ctx, l.client, []string{keys[i]}, token).Err(); err != nil {
			l.log.Warn("lock release failed", zap.String("key", keys[i]), zap.Error(err))
		}
	}
}
