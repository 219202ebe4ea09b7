package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/observability"
)

func newTestRedisCache(t *testing.T, opts ...Option) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, "test:", opts...), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics("test")
	c, mr := newTestRedisCache(t, WithMetrics(m))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "quote:1", []byte("payload"), time.Minute))
	assert.True(t, mr.Exists("test:quote:1"))
	assert.Equal(t, time.Minute, mr.TTL("test:quote:1"))

	v, err := c.Get(ctx, "quote:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), v)

	_, err = c.Get(ctx, "quote:missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.Equal(t, map[string]float64{"hit": 1, "miss": 1}, getResults(t, m))
}

func TestRedisCache_Expiry(t *testing.T) {
	t.Parallel()

	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	t.Parallel()

	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	assert.False(t, mr.Exists("test:k"))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Close())
}

func TestRedisCache_MissesDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	c, _ := newTestRedisCache(t, WithBreakerSettings(BreakerSettings{
		Threshold: 2, FailureRatio: 0.5, Timeout: time.Minute,
	}))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.Get(ctx, "missing")
		require.ErrorIs(t, err, ErrCacheMiss)
	}

	assert.Equal(t, gobreaker.StateClosed, c.breaker.state())
}

func TestRedisCache_BreakerOpensWhenServerDown(t *testing.T) {
	t.Parallel()

	c, mr := newTestRedisCache(t, WithBreakerSettings(BreakerSettings{
		Threshold: 2, FailureRatio: 0.5, Timeout: time.Minute,
	}))
	ctx := context.Background()

	mr.Close()

	for i := 0; i < 2; i++ {
		_, err := c.Get(ctx, "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCacheMiss)
	}

	assert.Equal(t, gobreaker.StateOpen, c.breaker.state())

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCircuitOpen)

	err = c.Set(ctx, "k", []byte("v"), time.Minute)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Server().Addr().Port

	client, err := NewClient(context.Background(), config.RedisConfig{
		Host:        host,
		Port:        port,
		DialTimeout: time.Second,
	}, nil)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClient_Unreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Server().Addr().Port
	mr.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	_, err := NewClient(context.Background(), config.RedisConfig{
		Host:           host,
		Port:           port,
		DialTimeout:    100 * time.Millisecond,
		ConnectRetries: 2,
	}, observability.NewZapLogger(zap.New(core)))

	assert.Error(t, err)
	assert.Equal(t, 2, logs.FilterMessage("redis not ready, retrying").Len())
}
