package counter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCounter(t *testing.T) {
	c := New(nil, DetectionsKey)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, "ip"))
	require.NoError(t, c.Add(ctx, "ip"))
	require.NoError(t, c.Add(ctx, "default"))

	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"ip": 2, "default": 1}, all)
}

func TestRedisCounter(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 14})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", err)
	}
	defer client.Close()

	key := fmt.Sprintf("test:%s:detections", uuid.NewString())
	defer client.Del(context.Background(), key)

	c := New(client, key)
	require.NoError(t, c.Add(ctx, "locale"))
	require.NoError(t, c.Add(ctx, "locale"))

	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all["locale"])
}
