//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/repository"
	"github.com/nysc/volunteers/test/integration/testutil"
)

func newVolunteer(name, email, whatsapp string) *domain.Volunteer {
	return &domain.Volunteer{
		ID:                 uuid.New(),
		Name:               name,
		Email:              email,
		WhatsApp:           whatsapp,
		AgeRange:           "18-20",
		Sex:                "male",
		District:           "galle",
		VolunteerType:      "cleaning",
		StartDate:          time.Now().AddDate(0, 0, 3).UTC().Truncate(24 * time.Hour),
		Duration:           "full",
		AvailableDistricts: []string{"galle"},
		Status:             domain.StatusPending,
	}
}

func TestVolunteerRepository_CreateAndFind(t *testing.T) {
	env := testutil.NewTestEnv(t)
	repo := repository.NewVolunteerRepository()
	ctx := context.Background()

	v := newVolunteer("Kamal Silva", "kamal@example.lk", "0771234567")
	require.NoError(t, repo.Create(ctx, env.Pool, v))
	assert.Positive(t, v.Seq)
	assert.False(t, v.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, env.Pool, v.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kamal Silva", got.Name)
	assert.Equal(t, []string{"galle"}, got.AvailableDistricts)

	missing, err := repo.FindByID(ctx, env.Pool, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestVolunteerRepository_UniqueConstraints(t *testing.T) {
	env := testutil.NewTestEnv(t)
	repo := repository.NewVolunteerRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, env.Pool, newVolunteer("A", "a@example.lk", "0771111111")))

	err := repo.Create(ctx, env.Pool, newVolunteer("B", "a@example.lk", "0772222222"))
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.Status)

	err = repo.Create(ctx, env.Pool, newVolunteer("C", "c@example.lk", "0771111111"))
	appErr, ok = domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.Status)
}

func TestVolunteerRepository_FilterAndCount(t *testing.T) {
	env := testutil.NewTestEnv(t)
	repo := repository.NewVolunteerRepository()
	ctx := context.Background()

	a := newVolunteer("Amara", "amara@example.lk", "0771000001")
	b := newVolunteer("Bandara", "bandara@example.lk", "0771000002")
	b.District = "kandy"
	b.Status = domain.StatusApproved
	c := newVolunteer("Sita_amma", "sita@example.lk", "0771000003")
	for _, v := range []*domain.Volunteer{a, b, c} {
		require.NoError(t, repo.Create(ctx, env.Pool, v))
	}

	n, err := repo.Count(ctx, env.Pool, domain.VolunteerFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.Count(ctx, env.Pool, domain.VolunteerFilter{District: "kandy"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Count(ctx, env.Pool, domain.VolunteerFilter{Status: "pending", District: "all"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// "_" must match literally, not as a single-character wildcard.
	list, err := repo.List(ctx, env.Pool, domain.VolunteerFilter{Search: "a_a"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)

	list, err = repo.List(ctx, env.Pool, domain.VolunteerFilter{Search: "0771000002"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	all, err := repo.ListAll(ctx, env.Pool, domain.VolunteerFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, c.ID, all[0].ID, "newest first")
}

func TestVolunteerRepository_LockAndUpdateInTx(t *testing.T) {
	env := testutil.NewTestEnv(t)
	repo := repository.NewVolunteerRepository()
	tx := repository.NewTransactor(env.Pool)
	ctx := context.Background()

	v := newVolunteer("Dilani", "dilani@example.lk", "0771000009")
	require.NoError(t, repo.Create(ctx, env.Pool, v))

	err := tx.WithinTx(ctx, func(db repository.DBTX) error {
		locked, err := repo.LockForUpdate(ctx, db, v.ID)
		if err != nil {
			return err
		}
		require.NotNil(t, locked)
		_, err = repo.UpdateStatus(ctx, db, v.ID, domain.StatusRejected)
		return err
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, env.Pool, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.SeedAdmin("admin@nysc.lk", "admin")
	ctx := context.Background()

	admin, err := repository.NewPgAdminRepository().FindByEmail(ctx, env.Pool, "admin@nysc.lk")
	require.NoError(t, err)
	require.NotNil(t, admin)

	sessions := repository.NewSessionRepository()
	require.NoError(t, sessions.Create(ctx, env.Pool, &domain.Session{
		ID: uuid.New(), AdminID: admin.ID, Token: "expired", ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, sessions.Create(ctx, env.Pool, &domain.Session{
		ID: uuid.New(), AdminID: admin.ID, Token: "live", ExpiresAt: time.Now().Add(time.Hour),
	}))

	n, err := sessions.DeleteExpired(ctx, env.Pool)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	live, err := sessions.FindByToken(ctx, env.Pool, "live")
	require.NoError(t, err)
	assert.NotNil(t, live)
}
