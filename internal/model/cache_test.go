package model

import (
	"context"
	"testing"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10)

	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("Get() on empty cache should miss")
	}

	c.Set(ctx, "k1", 0.42)
	got, ok := c.Get(ctx, "k1")
	if !ok || got != 0.42 {
		t.Errorf("Get(k1) = %f, %v; want 0.42, true", got, ok)
	}

	// Overwrite
	c.Set(ctx, "k1", 0.9)
	got, _ = c.Get(ctx, "k1")
	if got != 0.9 {
		t.Errorf("Get(k1) after overwrite = %f, want 0.9", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)

	// Touch "a" so "b" becomes the eviction candidate
	c.Get(ctx, "a")

	c.Set(ctx, "c", 3)

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("a should have survived eviction")
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Error("c should be present")
	}
}

type countingScorer struct {
	calls int
	prob  float64
}

func (s *countingScorer) Predict(_ context.Context, _ []string, _ int) (float64, error) {
	s.calls++
	return s.prob, nil
}

func TestCachedScorer(t *testing.T) {
	ctx := context.Background()
	inner := &countingScorer{prob: 0.7}
	cached := NewCachedScorer(inner, NewMemoryCache(10))

	tokens := []string{"the", "cat"}

	for i := 0; i < 3; i++ {
		got, err := cached.Predict(ctx, tokens, 1)
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		if got != 0.7 {
			t.Errorf("Predict() = %f, want 0.7", got)
		}
	}

	if inner.calls != 1 {
		t.Errorf("inner scorer called %d times, want 1", inner.calls)
	}

	// Different target is a different cache entry
	if _, err := cached.Predict(ctx, tokens, 0); err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner scorer called %d times, want 2", inner.calls)
	}
}
