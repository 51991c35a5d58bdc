package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/nysc/volunteers/internal/metrics"
)

// Cache is a read-through JSON cache over a Store. Every method is best effort:
// store failures are logged and reported as a miss or a no-op.
type Cache struct {
	store  Store
	logger *slog.Logger
}

// New creates a Cache over store.
func New(store Store, logger *slog.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Store exposes the underlying store.
func (c *Cache) Store() Store { return c.store }

// GetJSON decodes the value at key into dst and reports whether it was a hit.
// view labels the lookup in metrics.
func (c *Cache) GetJSON(ctx context.Context, view, key string, dst interface{}) bool {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		metrics.RecordCacheLookup(view, "miss")
		return false
	}
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		metrics.RecordCacheLookup(view, "error")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("cache entry undecodable, treating as miss", "key", key, "error", err)
		metrics.RecordCacheLookup(view, "error")
		return false
	}
	metrics.RecordCacheLookup(view, "hit")
	return true
}

// SetJSON encodes v and stores it at key for ttl.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes keys and reports whether the store accepted the delete.
func (c *Cache) Delete(ctx context.Context, keys ...string) bool {
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache delete failed", "keys", keys, "error", err)
		return false
	}
	return true
}

// DeletePattern removes keys matching pattern and reports whether it succeeded.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) bool {
	n, err := c.store.DeletePattern(ctx, pattern)
	if err != nil {
		c.logger.Warn("cache pattern delete failed", "pattern", pattern, "error", err)
		return false
	}
	c.logger.Debug("cache pattern deleted", "pattern", pattern, "count", n)
	return true
}
