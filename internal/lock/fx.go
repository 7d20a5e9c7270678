package lock

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/clanbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(New),
)

// New selects the lock backend from configuration.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Locker, error) {
	if cfg.Lock.Backend != config.LockBackendRedis {
		log.Info("using in-process locks")
		return NewLocal(cfg.Lock.WaitTimeout), nil
	}
	if cfg.Lock.RedisAddr == "" {
		return nil, errors.New("REDIS_ADDR is required for the redis lock backend")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Lock.RedisAddr,
		Password: cfg.Lock.RedisPassword,
		DB:       cfg.Lock.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	log.Info("using redis locks", zap.String("addr", cfg.Lock.RedisAddr))
	return NewRedis(client, cfg.Lock.TTL, cfg.Lock.WaitTimeout, log), nil
}
