package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, defaultBucketTTL(1, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 5))
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, retryAfter(true, 1))
	assert.Equal(t, time.Second, retryAfter(false, 5))
	assert.Equal(t, 4*time.Second, retryAfter(false, 0.25))
}

func TestNilLimiterAllows(t *testing.T) {
	var limiter *CommandLimiter

	res, err := limiter.Allow(context.Background(), "1", "2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.False(t, limiter.Enabled())
}

func TestTokenBucketValidatesArguments(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)

	bucket = NewTokenBucket(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	_, err = bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)
}

func TestCommandLimiterAgainstRedis(t *testing.T) {
	addr := os.Getenv("CLANBOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLANBOT_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	caller := time.Now().Format("150405.000000000")
	limiter := NewCommandLimiterWithClient(client, 0.01, 2)

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "guild", caller)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := limiter.Allow(ctx, "guild", caller)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 100*time.Second, res.RetryAfter)
}
