package counter

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DetectionsKey holds how often each detection source picked a currency.
const DetectionsKey = "pricing:counters:detections"

// Counter increments named fields of a Redis hash. Without a client the
// counts are kept in process memory.
type Counter struct {
	client *redis.Client
	key    string

	mu    sync.Mutex
	local map[string]int64
}

func New(client *redis.Client, key string) *Counter {
	return &Counter{client: client, key: key, local: map[string]int64{}}
}

func (c *Counter) Add(ctx context.Context, field string) error {
	if c.client != nil {
		return c.client.HIncrBy(ctx, c.key, field, 1).Err()
	}
	c.mu.Lock()
	c.local[field]++
	c.mu.Unlock()
	return nil
}

// All returns the current counts.
func (c *Counter) All(ctx context.Context) (map[string]int64, error) {
	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		out := make(map[string]int64, len(c.local))
		for k, v := range c.local {
			out[k] = v
		}
		return out, nil
	}

	data, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
