package model

import (
	"context"
	"sync"

	"github.com/explainbench/explain-bench/internal/pkg/hash"
)

// CacheMetrics is the interface for recording cache metrics.
// This allows the cache to be decoupled from the telemetry package.
type CacheMetrics interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
	UpdateCacheSize(cacheType string, size int)
}

// PredictionCache stores model probabilities keyed by prediction key.
type PredictionCache interface {
	Get(ctx context.Context, key string) (float64, bool)
	Set(ctx context.Context, key string, prob float64)
}

// MemoryCache is an in-process LRU prediction cache.
type MemoryCache struct {
	mu      sync.Mutex
	cache   map[string]float64
	maxSize int
	order   []string // LRU order, oldest first
	metrics CacheMetrics
}

// NewMemoryCache creates a new in-memory prediction cache.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 10000
	}

	return &MemoryCache{
		cache:   make(map[string]float64),
		maxSize: maxSize,
		order:   make([]string, 0, maxSize),
	}
}

// SetMetrics sets the metrics recorder for this cache.
func (c *MemoryCache) SetMetrics(metrics CacheMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = metrics
}

// Get retrieves a cached probability.
func (c *MemoryCache) Get(_ context.Context, key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prob, ok := c.cache[key]
	if ok {
		if c.metrics != nil {
			c.metrics.RecordCacheHit("prediction")
		}
		c.moveToEnd(key)
		return prob, true
	}

	if c.metrics != nil {
		c.metrics.RecordCacheMiss("prediction")
	}
	return 0, false
}

// Set stores a probability, evicting the least recently used entry when full.
func (c *MemoryCache) Set(_ context.Context, key string, prob float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; exists {
		c.cache[key] = prob
		c.moveToEnd(key)
		return
	}

	if len(c.cache) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}

	c.cache[key] = prob
	c.order = append(c.order, key)

	if c.metrics != nil {
		c.metrics.UpdateCacheSize("prediction", len(c.cache))
	}
}

// Len returns the current number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *MemoryCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

// CachedScorer decorates a Scorer with a prediction cache. Metrics evaluate
// many masked variants of one text; identical variants across metrics hit
// the cache instead of the model.
type CachedScorer struct {
	scorer Scorer
	cache  PredictionCache
}

// NewCachedScorer wraps a scorer with a cache.
func NewCachedScorer(scorer Scorer, cache PredictionCache) *CachedScorer {
	return &CachedScorer{scorer: scorer, cache: cache}
}

// Predict implements Scorer.
func (s *CachedScorer) Predict(ctx context.Context, tokens []string, target int) (float64, error) {
	key := hash.PredictionKey(tokens, target)

	if prob, ok := s.cache.Get(ctx, key); ok {
		return prob, nil
	}

	prob, err := s.scorer.Predict(ctx, tokens, target)
	if err != nil {
		return 0, err
	}

	s.cache.Set(ctx, key, prob)
	return prob, nil
}
