package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/metrics"
)

// Policy bounds how often one identifier may perform an action.
type Policy struct {
	Action      string
	MaxRequests int
	Window      time.Duration
}

// Identifier scopes a client key (usually an IP) to the policy's action.
func (p Policy) Identifier(key string) string {
	return p.Action + ":" + key
}

// RateLimiter implements a fixed-window counter limiter on a shared cache store.
//
// The first request in a window creates the counter with the window as its
// expiry; the counter disappears when the window ends. When the store cannot be
// reached the limiter fails open: the request is allowed and the failure logged.
type RateLimiter struct {
	store  cache.Store
	logger *slog.Logger
}

// NewRateLimiter creates a rate limiter over store.
func NewRateLimiter(store cache.Store, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{store: store, logger: logger}
}

// IsRateLimited increments the counter for identifier and reports whether the
// post-increment count exceeds maxRequests.
func (rl *RateLimiter) IsRateLimited(ctx context.Context, identifier string, maxRequests int, window time.Duration) bool {
	count, err := rl.store.Incr(ctx, cache.RateLimitKey(identifier), window)
	if err != nil {
		rl.failOpen(identifier, err)
		return false
	}
	return count > int64(maxRequests)
}

// Remaining returns how many requests identifier has left in the current window.
// It fails open to maxRequests.
func (rl *RateLimiter) Remaining(ctx context.Context, identifier string, maxRequests int) int {
	raw, err := rl.store.Get(ctx, cache.RateLimitKey(identifier))
	if errors.Is(err, cache.ErrMiss) {
		return maxRequests
	}
	if err != nil {
		rl.logger.Warn("rate limit remaining lookup failed", "identifier", identifier, "error", err)
		return maxRequests
	}
	used, err := strconv.Atoi(string(raw))
	if err != nil {
		return maxRequests
	}
	return max(0, maxRequests-used)
}

// Check applies policy to key and returns a GuardResult with remaining budget
// and, when blocked, how long until the window resets.
func (rl *RateLimiter) Check(ctx context.Context, policy Policy, key string) domain.GuardResult {
	id := policy.Identifier(key)
	count, err := rl.store.Incr(ctx, cache.RateLimitKey(id), policy.Window)
	if err != nil {
		rl.failOpen(id, err)
		return domain.GuardResult{Allowed: true, Remaining: policy.MaxRequests}
	}

	if count > int64(policy.MaxRequests) {
		metrics.RateLimitRejections.WithLabelValues(policy.Action).Inc()
		retry, err := rl.store.TTL(ctx, cache.RateLimitKey(id))
		if err != nil || retry <= 0 {
			retry = policy.Window
		}
		return domain.GuardResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("rate limit exceeded: %d/%s", policy.MaxRequests, policy.Window),
			Guard:      "rate_limiter",
			RetryAfter: retry,
		}
	}

	return domain.GuardResult{Allowed: true, Remaining: policy.MaxRequests - int(count)}
}

func (rl *RateLimiter) failOpen(identifier string, err error) {
	metrics.RateLimitFailOpen.Inc()
	rl.logger.Warn("rate limit check failed, allowing request", "identifier", identifier, "error", err)
}
