package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/repository"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTx runs fn without a database.
type fakeTx struct{}

func (fakeTx) WithinTx(_ context.Context, fn func(db repository.DBTX) error) error {
	return fn(nil)
}

type fakeVolunteers struct {
	mu   sync.Mutex
	rows []domain.Volunteer
	seq  int64

	createErr error
	listCalls int
}

func (f *fakeVolunteers) Create(_ context.Context, _ repository.DBTX, v *domain.Volunteer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	v.Seq = f.seq
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	f.rows = append(f.rows, *v)
	return nil
}

func (f *fakeVolunteers) find(id uuid.UUID) (*domain.Volunteer, int) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			v := f.rows[i]
			return &v, i
		}
	}
	return nil, -1
}

func (f *fakeVolunteers) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, _ := f.find(id)
	return v, nil
}

func (f *fakeVolunteers) LockForUpdate(ctx context.Context, db repository.DBTX, id uuid.UUID) (*domain.Volunteer, error) {
	return f.FindByID(ctx, db, id)
}

func (f *fakeVolunteers) UpdateStatus(_ context.Context, _ repository.DBTX, id uuid.UUID, status domain.VolunteerStatus) (*domain.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, i := f.find(id)
	if i < 0 {
		return nil, domain.ErrNotFound("volunteer", id.String())
	}
	f.rows[i].Status = status
	v := f.rows[i]
	return &v, nil
}

func (f *fakeVolunteers) matching(filter domain.VolunteerFilter) []domain.Volunteer {
	filter = filter.Normalize()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []domain.Volunteer
	for _, v := range f.rows {
		if search != "" &&
			!strings.Contains(strings.ToLower(v.Name), search) &&
			!strings.Contains(strings.ToLower(v.Email), search) &&
			!strings.Contains(strings.ToLower(v.WhatsApp), search) {
			continue
		}
		if filter.District != "" && v.District != filter.District {
			continue
		}
		if filter.VolunteerType != "" && v.VolunteerType != filter.VolunteerType {
			continue
		}
		if filter.Status != "" && string(v.Status) != filter.Status {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out
}

func (f *fakeVolunteers) List(_ context.Context, _ repository.DBTX, filter domain.VolunteerFilter, offset, limit int) ([]domain.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	all := f.matching(filter)
	if offset >= len(all) {
		return []domain.Volunteer{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (f *fakeVolunteers) Count(_ context.Context, _ repository.DBTX, filter domain.VolunteerFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matching(filter)), nil
}

func (f *fakeVolunteers) ListAll(_ context.Context, _ repository.DBTX, filter domain.VolunteerFilter) ([]domain.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matching(filter), nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []domain.OutboxDraft
}

func (f *fakeOutbox) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, draft)
	return nil
}

func (f *fakeOutbox) FetchUnpublished(context.Context, repository.DBTX, int) ([]domain.OutboxDraft, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, repository.DBTX, []int64) error { return nil }

type stubCaptcha struct{ err error }

func (s stubCaptcha) Verify(context.Context, string, string) error { return s.err }

// spyStore records which keys were read and written.
type spyStore struct {
	cache.Store
	mu   sync.Mutex
	gets []string
	sets []string
}

func (s *spyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.gets = append(s.gets, key)
	s.mu.Unlock()
	return s.Store.Get(ctx, key)
}

func (s *spyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.sets = append(s.sets, key)
	s.mu.Unlock()
	return s.Store.Set(ctx, key, value, ttl)
}

func (s *spyStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets, s.sets = nil, nil
}

type fixture struct {
	mr         *miniredis.Miniredis
	store      *spyStore
	cache      *cache.Cache
	volunteers *fakeVolunteers
	outbox     *fakeOutbox
	svc        *VolunteerService
	stats      *StatisticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &spyStore{Store: cache.NewRedisStore(client)}
	c := cache.New(store, noopLogger())
	vols := &fakeVolunteers{}
	outbox := &fakeOutbox{}
	inv := NewCacheInvalidator(c, noopLogger())

	return &fixture{
		mr:         mr,
		store:      store,
		cache:      c,
		volunteers: vols,
		outbox:     outbox,
		svc:        NewVolunteerService(nil, fakeTx{}, vols, outbox, c, inv, stubCaptcha{}, time.Minute, noopLogger()),
		stats:      NewStatisticsService(nil, vols, c, 5*time.Minute, noopLogger()),
	}
}

func validInput() RegisterInput {
	return RegisterInput{
		Name:               "  Nimali Perera ",
		Email:              " Nimali@Example.COM ",
		WhatsApp:           "+94 771234567",
		AgeRange:           "20-30",
		Sex:                "female",
		District:           "colombo",
		VolunteerType:      "medical",
		StartDate:          "2099-01-15",
		Duration:           "full",
		AvailableDistricts: []string{"colombo", "gampaha", "colombo"},
	}
}

func seedVolunteer(t *testing.T, f *fixture, name string, mutate func(v *domain.Volunteer)) domain.Volunteer {
	t.Helper()
	v := domain.Volunteer{
		ID:                 uuid.New(),
		Name:               name,
		Email:              strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		WhatsApp:           "0771234567",
		AgeRange:           "20-30",
		Sex:                "male",
		District:           "galle",
		VolunteerType:      "cleaning",
		Duration:           "2",
		AvailableDistricts: []string{"galle"},
		Status:             domain.StatusPending,
	}
	if mutate != nil {
		mutate(&v)
	}
	if err := f.volunteers.Create(context.Background(), nil, &v); err != nil {
		t.Fatalf("seed volunteer: %v", err)
	}
	return v
}
