package model

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Redis-backed prediction cache, shared across server
// replicas so repeated evaluations of the same text reuse each other's
// model calls.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics CacheMetrics
}

// NewRedisCache creates a Redis-backed prediction cache.
// Returns error if connection fails.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "xb:predict:",
		ttl:    ttl,
	}, nil
}

// SetMetrics sets the metrics recorder for this cache.
func (c *RedisCache) SetMetrics(metrics CacheMetrics) {
	c.metrics = metrics
}

// Get retrieves a cached probability.
func (c *RedisCache) Get(ctx context.Context, key string) (float64, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		// Treat redis failures the same as a miss; the model call covers it.
		if c.metrics != nil {
			c.metrics.RecordCacheMiss("prediction")
		}
		return 0, false
	}

	prob, err := strconv.ParseFloat(val, 64)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordCacheMiss("prediction")
		}
		return 0, false
	}

	if c.metrics != nil {
		c.metrics.RecordCacheHit("prediction")
	}
	return prob, true
}

// Set stores a probability.
func (c *RedisCache) Set(ctx context.Context, key string, prob float64) {
	// Best effort; a failed write only costs a future model call.
	c.client.Set(ctx, c.prefix+key, strconv.FormatFloat(prob, 'g', -1, 64), c.ttl)
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
