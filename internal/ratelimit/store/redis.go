package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is prepended to every counter key.
const DefaultRedisPrefix = "ratelimit:"

// incrementWithExpiryScript atomically increments a counter and sets its
// expiry when the counter was just created.
//
// KEYS[1] = key
// ARGV[1] = delta
// ARGV[2] = expiration in milliseconds
var incrementWithExpiryScript = redis.NewScript(`
	local current = redis.call('INCRBY', KEYS[1], ARGV[1])
	if current == tonumber(ARGV[1]) then
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return current
`)

// RedisStore implements Store on top of a shared Redis client so that
// several service instances observe the same counters.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis store. The client is owned by the caller
// and is not closed by Close.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// prefixKey adds the prefix to the key.
func (s *RedisStore) prefixKey(key string) string {
	return s.prefix + key
}

// IncrementWithExpiry implements Store.
func (s *RedisStore) IncrementWithExpiry(
	ctx context.Context,
	key string,
	delta int64,
	expiration time.Duration,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error before redis increment: %w", err)
	}

	ms := expiration.Milliseconds()
	if ms <= 0 {
		ms = math.MaxInt32
	}

	n, err := incrementWithExpiryScript.Run(ctx, s.client, []string{s.prefixKey(key)}, delta, ms).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis increment error: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return nil
}
