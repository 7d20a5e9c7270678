package lock

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T, wait time.Duration) *Redis {
	t.Helper()
	addr := os.Getenv("CLANBOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLANBOT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return NewRedis(client, 5*time.Second, wait, zap.NewNop())
}

func TestRedisExclusiveAndReleased(t *testing.T) {
	l := newTestRedis(t, 100*time.Millisecond)
	ctx := context.Background()
	key := "test:" + t.Name()

	release, err := l.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrTimeout)

	release()

	again, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	again()
}

func TestRedisRequiresClient(t *testing.T) {
	var l *Redis
	_, err := l.Acquire(context.Background(), "x")
	assert.Error(t, err)
}
