package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLimiterWindow(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	l := NewRedisLimiter(client, 2, 5*time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "u1:room")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := l.Allow(ctx, "u1:room")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "u2:room")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 5*time.Minute, mr.TTL("ratelimit:room-entry:u1:room"))

	mr.FastForward(5*time.Minute + time.Second)
	ok, err = l.Allow(ctx, "u1:room")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterRearmsKeyWithoutTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	l := NewRedisLimiter(client, 2, time.Minute)

	// a counter left behind with no expiry
	require.NoError(t, mr.Set("ratelimit:room-entry:u1:room", "7"))

	ok, err := l.Allow(ctx, "u1:room")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:room-entry:u1:room"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "u1:room")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterBackendDown(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLimiter(client, 2, time.Minute)
	mr.Close()

	ok, err := l.Allow(context.Background(), "u1:room")
	assert.Error(t, err)
	assert.False(t, ok)
}
