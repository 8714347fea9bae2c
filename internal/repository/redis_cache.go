package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/subflo/subflo/pkg/logger"
)

// Report results tolerate a few seconds of staleness, so a short TTL keeps
// the dashboard cheap without changing observable behavior.
const reportCacheTTL = 30 * time.Second

// RedisCache is a thin byte-blob cache over a Redis connection
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCache creates a Redis cache client and verifies the connection
func NewRedisCache(addr, password string, db int, log *logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis: %v", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Connected to Redis at %s", addr)
	return &RedisCache{
		client: client,
		log:    log,
	}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Get returns the cached blob for key, or nil on a miss. Cache errors are
// reported to the caller but never fatal.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return data, nil
}

// Set stores a blob under key with the report TTL
func (c *RedisCache) Set(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, key, data, reportCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}
