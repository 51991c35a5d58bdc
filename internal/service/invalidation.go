package service

import (
	"context"
	"log/slog"

	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/metrics"
)

// CacheInvalidator clears the cached views derived from volunteer records.
//
// It runs after a volunteer write has committed. Failures are logged and
// counted but never returned: the write already succeeded and every cached
// view expires on its own within its TTL.
type CacheInvalidator struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCacheInvalidator creates a CacheInvalidator.
func NewCacheInvalidator(c *cache.Cache, logger *slog.Logger) *CacheInvalidator {
	return &CacheInvalidator{cache: c, logger: logger}
}

// VolunteersChanged drops the statistics snapshots and every cached list page.
// reason is only used for logging. It reports whether both deletes succeeded;
// services ignore the result, volunteerctl surfaces it.
func (i *CacheInvalidator) VolunteersChanged(ctx context.Context, reason string) bool {
	statsOK := i.cache.Delete(ctx, cache.KeyVolunteerStats, cache.KeyDistrictStats)
	pagesOK := i.cache.DeletePattern(ctx, cache.PatternVolunteerPages)

	if statsOK && pagesOK {
		metrics.CacheInvalidations.WithLabelValues("ok").Inc()
		i.logger.Debug("volunteer caches invalidated", "reason", reason)
		return true
	}
	metrics.CacheInvalidations.WithLabelValues("failed").Inc()
	i.logger.Warn("volunteer cache invalidation incomplete",
		"reason", reason,
		"stats_cleared", statsOK,
		"pages_cleared", pagesOK,
	)
	return false
}
