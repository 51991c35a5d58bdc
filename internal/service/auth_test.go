package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/repository"
)

type fakeAdmins struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.AdminUser
	touched []uuid.UUID
}

func newFakeAdmins() *fakeAdmins {
	return &fakeAdmins{byID: map[uuid.UUID]*domain.AdminUser{}}
}

func (f *fakeAdmins) FindByEmail(_ context.Context, _ repository.DBTX, email string) (*domain.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAdmins) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

func (f *fakeAdmins) Create(_ context.Context, _ repository.DBTX, a *domain.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAdmins) TouchLastLogin(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return nil
}

type fakeSessions struct {
	mu      sync.Mutex
	byToken map[string]*domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]*domain.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, _ repository.DBTX, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byToken[s.Token] = s
	return nil
}

func (f *fakeSessions) FindByToken(_ context.Context, _ repository.DBTX, token string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byToken[token], nil
}

func (f *fakeSessions) Delete(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tok, s := range f.byToken {
		if s.ID == id {
			delete(f.byToken, tok)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteByToken(_ context.Context, _ repository.DBTX, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, _ repository.DBTX) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for tok, s := range f.byToken {
		if s.Expired(time.Now()) {
			delete(f.byToken, tok)
			n++
		}
	}
	return n, nil
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeAdmins, *fakeSessions, *domain.AdminUser) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	admins := newFakeAdmins()
	admin := &domain.AdminUser{
		ID:           uuid.New(),
		Email:        "admin@nysc.lk",
		PasswordHash: string(hash),
		Name:         "Admin",
		Role:         "admin",
	}
	admins.byID[admin.ID] = admin
	sessions := newFakeSessions()
	return NewAuthService(nil, admins, sessions, 24*time.Hour, noopLogger()), admins, sessions, admin
}

func TestLogin(t *testing.T) {
	svc, admins, sessions, admin := newAuthFixture(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "admin@nysc.lk"})
		appErr, ok := domain.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.Status)
		assert.Equal(t, "Email and password are required", appErr.Message)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "who@nysc.lk", Password: "x"})
		appErr, ok := domain.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, appErr.Status)
		assert.Equal(t, "Invalid email or password", appErr.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "admin@nysc.lk", Password: "wrong"})
		appErr, ok := domain.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "Invalid email or password", appErr.Message)
	})

	t.Run("success", func(t *testing.T) {
		before := time.Now()
		res, err := svc.Login(ctx, LoginInput{Email: " Admin@NYSC.lk", Password: "correct horse"})
		require.NoError(t, err)

		assert.Len(t, res.Token, 64, "32 random bytes hex encoded")
		assert.Equal(t, admin.Summary(), res.Admin)
		assert.WithinDuration(t, before.Add(24*time.Hour), res.ExpiresAt, 5*time.Second)
		assert.Contains(t, sessions.byToken, res.Token)
		assert.Equal(t, []uuid.UUID{admin.ID}, admins.touched)
	})
}

func TestAuthenticate(t *testing.T) {
	svc, _, sessions, admin := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{Email: "admin@nysc.lk", Password: "correct horse"})
	require.NoError(t, err)

	t.Run("live session", func(t *testing.T) {
		got, err := svc.Authenticate(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)
	})

	t.Run("empty and unknown tokens", func(t *testing.T) {
		for _, tok := range []string{"", "deadbeef"} {
			_, err := svc.Authenticate(ctx, tok)
			appErr, ok := domain.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusUnauthorized, appErr.Status)
		}
	})

	t.Run("expired session is deleted on access", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err := svc.Authenticate(ctx, res.Token)
		appErr, ok := domain.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, appErr.Status)
		assert.NotContains(t, sessions.byToken, res.Token)
	})
}

func TestLogout(t *testing.T) {
	svc, _, sessions, _ := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{Email: "admin@nysc.lk", Password: "correct horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Token))
	assert.Empty(t, sessions.byToken)
	assert.NoError(t, svc.Logout(ctx, ""), "logout without a session is fine")
	assert.NoError(t, svc.Logout(ctx, "unknown"))
}

func TestPruneSessions(t *testing.T) {
	svc, _, sessions, admin := newAuthFixture(t)
	sessions.byToken["old"] = &domain.Session{ID: uuid.New(), AdminID: admin.ID, Token: "old", ExpiresAt: time.Now().Add(-time.Minute)}
	sessions.byToken["new"] = &domain.Session{ID: uuid.New(), AdminID: admin.ID, Token: "new", ExpiresAt: time.Now().Add(time.Hour)}

	n, err := svc.PruneSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, sessions.byToken, "new")
}

func TestSeedAdmin(t *testing.T) {
	svc, admins, _, _ := newAuthFixture(t)
	ctx := context.Background()

	created, err := svc.SeedAdmin(ctx, SeedAdminInput{Email: "Root@NYSC.lk", Password: "s3cret-pass", Name: "Root"})
	require.NoError(t, err)
	assert.True(t, created)

	seeded, err := admins.FindByEmail(ctx, nil, "root@nysc.lk")
	require.NoError(t, err)
	require.NotNil(t, seeded)
	assert.Equal(t, "superadmin", seeded.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(seeded.PasswordHash), []byte("s3cret-pass")))

	created, err = svc.SeedAdmin(ctx, SeedAdminInput{Email: "root@nysc.lk", Password: "another-pass"})
	require.NoError(t, err)
	assert.False(t, created, "seeding is idempotent")

	_, err = svc.SeedAdmin(ctx, SeedAdminInput{Email: "x@nysc.lk", Password: "short"})
	assert.Error(t, err)

	_, err = svc.SeedAdmin(ctx, SeedAdminInput{Email: "y@nysc.lk", Password: "long-enough", Role: "root"})
	assert.Error(t, err)
}
