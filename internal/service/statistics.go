package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/repository"
	"github.com/nysc/volunteers/internal/stats"
)

// StatisticsService serves the dashboard aggregates, cache first.
type StatisticsService struct {
	db         repository.DBTX
	volunteers repository.VolunteerRepository
	cache      *cache.Cache
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewStatisticsService creates a StatisticsService. ttl bounds how long a
// snapshot is served without recomputation.
func NewStatisticsService(
	db repository.DBTX,
	volunteers repository.VolunteerRepository,
	c *cache.Cache,
	ttl time.Duration,
	logger *slog.Logger,
) *StatisticsService {
	return &StatisticsService{
		db:         db,
		volunteers: volunteers,
		cache:      c,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}
}

// Get returns the cached snapshot, or recomputes it from every volunteer
// record and caches the result.
func (s *StatisticsService) Get(ctx context.Context) (*stats.Snapshot, error) {
	var snap stats.Snapshot
	if s.cache.GetJSON(ctx, "statistics", cache.KeyVolunteerStats, &snap) {
		return &snap, nil
	}

	all, err := s.volunteers.ListAll(ctx, s.db, domain.VolunteerFilter{})
	if err != nil {
		return nil, domain.ErrInternal("Failed to fetch statistics", err)
	}

	snap = stats.Compute(all, s.now())
	s.cache.SetJSON(ctx, cache.KeyVolunteerStats, snap, s.ttl)
	s.logger.Debug("statistics recomputed", "volunteers", len(all))
	return &snap, nil
}
