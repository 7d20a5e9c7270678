package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/clanbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyCommandCaller = "clanbot:ratelimit:command:%s:%s"

// CommandLimiter throttles command invocations per caller within a server.
// A nil limiter allows everything.
type CommandLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCommandLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*CommandLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.Lock.RedisAddr)
	if addr == "" {
		return nil, errors.New("REDIS_ADDR is required when rate limiting is enabled")
	}
	if limitCfg.CommandRate <= 0 || limitCfg.CommandBurst <= 0 {
		return nil, errors.New("command rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Lock.RedisPassword,
		DB:       cfg.Lock.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	log.Info("command rate limit enabled",
		zap.Float64("rate", limitCfg.CommandRate),
		zap.Int("burst", limitCfg.CommandBurst),
	)
	return NewCommandLimiterWithClient(client, limitCfg.CommandRate, limitCfg.CommandBurst), nil
}

func NewCommandLimiterWithClient(client *redis.Client, rate float64, burst int) *CommandLimiter {
	return &CommandLimiter{
		bucket: NewTokenBucket(client),
		rate:   rate,
		burst:  burst,
	}
}

func (l *CommandLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *CommandLimiter) Allow(ctx context.Context, serverRef, callerRef string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyCommandCaller, strings.TrimSpace(serverRef), strings.TrimSpace(callerRef))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
