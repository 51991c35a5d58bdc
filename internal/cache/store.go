// Package cache provides the shared key-value store used for aggregate and page
// caching and for rate-limit counters.
//
// Store is the raw collaborator contract and surfaces every backend error.
// Cache wraps a Store for read-through caching and never surfaces errors: a
// failed read is a miss and a failed write or delete is logged and dropped.
// The record store stays the source of truth.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a shared key-value store with expiry.
type Store interface {
	// Get returns the value stored at key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern and returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// Incr atomically increments the counter at key and returns the new value.
	// When the counter is created by this call its expiry is set to ttl, in the
	// same indivisible operation.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// TTL returns the remaining lifetime of key, or ErrMiss.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
