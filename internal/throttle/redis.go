package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript increments the counter and arms its expiry in one step. A key
// that somehow lost its TTL gets one again instead of locking the caller out.
var allowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 or redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter counts attempts per key in a fixed window shared by every
// instance of the service.
type RedisLimiter struct {
	client   redis.Scripter
	attempts int64
	window   time.Duration
	prefix   string
}

func NewRedisLimiter(client redis.Scripter, attempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		attempts: int64(attempts),
		window:   window,
		prefix:   "ratelimit:room-entry:",
	}
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + key
	count, err := allowScript.Run(ctx, r.client, []string{k}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("throttle: incr %s: %w", k, err)
	}
	return count <= r.attempts, nil
}
