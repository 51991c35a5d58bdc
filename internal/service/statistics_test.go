package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/stats"
)

func statusLabels(counts []stats.StatusCount) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Status
	}
	return out
}

func TestStatistics_CachesSnapshotForTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedVolunteer(t, f, "Kamal Silva", nil)

	snap, err := f.stats.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Overview.TotalVolunteers)
	assert.Equal(t, 5*time.Minute, f.mr.TTL(cache.KeyVolunteerStats))

	// A write that bypasses the service leaves the cached snapshot in place.
	seedVolunteer(t, f, "Nimali Perera", nil)
	cached, err := f.stats.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Overview.TotalVolunteers)

	f.mr.FastForward(5*time.Minute + time.Second)
	fresh, err := f.stats.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Overview.TotalVolunteers, "staleness is bounded by the ttl")
}

func TestStatistics_ServesCachedSnapshot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mr.Set(cache.KeyVolunteerStats, `{"overview":{"totalVolunteers":42}}`))

	snap, err := f.stats.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, snap.Overview.TotalVolunteers)
}

func TestStatistics_RecomputesWhenCacheIsDown(t *testing.T) {
	f := newFixture(t)
	seedVolunteer(t, f, "Kamal Silva", func(v *domain.Volunteer) { v.Status = domain.StatusRejected })
	f.mr.Close()

	snap, err := f.stats.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Rejected"}, statusLabels(snap.StatusStats))
}

func TestCacheInvalidator_LeavesUnrelatedKeys(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mr.Set(cache.KeyVolunteerStats, "x"))
	require.NoError(t, f.mr.Set("volunteers:page:1:limit:10", "x"))
	require.NoError(t, f.mr.Set("session_hint", "x"))

	assert.True(t, NewCacheInvalidator(f.cache, noopLogger()).VolunteersChanged(context.Background(), "test"))

	assert.False(t, f.mr.Exists(cache.KeyVolunteerStats))
	assert.False(t, f.mr.Exists("volunteers:page:1:limit:10"))
	assert.True(t, f.mr.Exists("session_hint"))
}

func TestCacheInvalidator_ReportsFailureWhenCacheIsDown(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	assert.False(t, NewCacheInvalidator(f.cache, noopLogger()).VolunteersChanged(context.Background(), "test"))
}
