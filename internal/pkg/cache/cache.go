package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/JobFox/internal/pkg/env"
)

var client *redis.Client

// SetupCache initializes the connection to the Redis/Dragonfly cache server.
// It returns false and leaves no client behind when the server did not
// answer the initial ping.
func SetupCache() bool {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
		_ = client.Close()
		client = nil
		return false
	}
	log.Printf("Successfully connected to cache: %s", pong)
	return true
}

// GetClient returns the Redis client instance, nil when the cache is not
// available.
func GetClient() *redis.Client {
	return client
}
