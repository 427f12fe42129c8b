package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/JobFox/internal/pkg/env"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", "v1"))
	require.NoError(t, m.Set(ctx, "k", "v2"))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")
	c := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       14,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisStore(t *testing.T) {
	c := newTestRedisClient(t)
	ctx := context.Background()
	prefix := "jobfox:test:" + uuid.NewString() + ":"
	s := NewRedis(c, prefix, time.Minute)
	t.Cleanup(func() { c.Del(context.Background(), prefix+"k") })

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "value"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}
