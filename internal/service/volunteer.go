package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/metrics"
	"github.com/nysc/volunteers/internal/provider"
	"github.com/nysc/volunteers/internal/repository"
	"github.com/nysc/volunteers/internal/validation"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	// maxPage keeps (page-1)*limit far from int overflow; pages past the data are empty.
	maxPage = 1_000_000
)

// CaptchaVerifier checks a registration's verification token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// VolunteerService handles registrations and the admin volunteer views.
type VolunteerService struct {
	db          repository.DBTX
	tx          repository.Transactor
	volunteers  repository.VolunteerRepository
	outbox      repository.OutboxRepository
	cache       *cache.Cache
	invalidator *CacheInvalidator
	captcha     CaptchaVerifier
	listTTL     time.Duration
	logger      *slog.Logger
}

// NewVolunteerService creates a VolunteerService. listTTL bounds how long an
// unfiltered list page is served from the cache.
func NewVolunteerService(
	db repository.DBTX,
	tx repository.Transactor,
	volunteers repository.VolunteerRepository,
	outbox repository.OutboxRepository,
	c *cache.Cache,
	invalidator *CacheInvalidator,
	captcha CaptchaVerifier,
	listTTL time.Duration,
	logger *slog.Logger,
) *VolunteerService {
	return &VolunteerService{
		db:          db,
		tx:          tx,
		volunteers:  volunteers,
		outbox:      outbox,
		cache:       c,
		invalidator: invalidator,
		captcha:     captcha,
		listTTL:     listTTL,
		logger:      logger,
	}
}

// RegisterInput holds the registration form fields.
type RegisterInput struct {
	Name               string   `json:"name" validate:"required,min=2,max=100"`
	Email              string   `json:"email" validate:"required,email"`
	WhatsApp           string   `json:"whatsapp" validate:"required,min=10,max=15,phone"`
	AgeRange           string   `json:"ageRange" validate:"required,oneof=18-20 20-30 30-40"`
	Sex                string   `json:"sex" validate:"required,oneof=female male other"`
	District           string   `json:"district" validate:"required,district"`
	CurrentDistrict    string   `json:"currentDistrict" validate:"omitempty,max=50"`
	VolunteerType      string   `json:"volunteerType" validate:"required,volunteertype"`
	StartDate          string   `json:"startDate" validate:"required,datetime=2006-01-02,notpast"`
	Duration           string   `json:"duration" validate:"required,oneof=1 2 3 4 full"`
	AvailableDistricts []string `json:"availableDistricts" validate:"required,min=1,max=25,dive,district"`
	VerificationToken  string   `json:"verificationToken,omitempty"`
}

// normalize trims free text, lower-cases the email and collapses duplicate districts.
func (in RegisterInput) normalize() RegisterInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	in.WhatsApp = strings.TrimSpace(in.WhatsApp)
	in.District = strings.TrimSpace(in.District)
	in.CurrentDistrict = strings.TrimSpace(in.CurrentDistrict)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.AvailableDistricts = domain.DedupeDistricts(in.AvailableDistricts)
	return in
}

// Register validates input, stores a pending volunteer together with its
// outbox event, and invalidates the cached views.
func (s *VolunteerService) Register(ctx context.Context, input RegisterInput, remoteIP string) (*domain.Volunteer, error) {
	input = input.normalize()

	if fields := validation.ValidateStruct(input); fields != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, domain.ErrValidationFields("Validation error", fields)
	}

	if err := s.captcha.Verify(ctx, input.VerificationToken, remoteIP); err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		if errors.Is(err, provider.ErrCaptchaRejected) {
			return nil, domain.ErrValidationFields("Verification failed", []domain.FieldError{
				{Field: "verificationToken", Message: "Verification failed. Please try again."},
			})
		}
		return nil, domain.ErrInternal("Registration failed. Please try again later.", err)
	}

	startDate, err := time.Parse("2006-01-02", input.StartDate)
	if err != nil {
		return nil, domain.ErrValidation("Start date must be a date (YYYY-MM-DD)")
	}

	v := &domain.Volunteer{
		ID:                 uuid.New(),
		Name:               input.Name,
		Email:              input.Email,
		WhatsApp:           input.WhatsApp,
		AgeRange:           input.AgeRange,
		Sex:                input.Sex,
		District:           input.District,
		CurrentDistrict:    input.CurrentDistrict,
		VolunteerType:      input.VolunteerType,
		StartDate:          startDate,
		Duration:           input.Duration,
		AvailableDistricts: input.AvailableDistricts,
		Status:             domain.StatusPending,
	}

	err = s.tx.WithinTx(ctx, func(db repository.DBTX) error {
		if err := s.volunteers.Create(ctx, db, v); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, db, domain.NewVolunteerRegisteredEvent(v))
	})
	if err != nil {
		if appErr, ok := domain.AsAppError(err); ok {
			metrics.Registrations.WithLabelValues("conflict").Inc()
			return nil, appErr
		}
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, domain.ErrInternal("Registration failed. Please try again later.", err)
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	s.logger.Info("volunteer registered", "volunteer_id", v.ID, "district", v.District, "type", v.VolunteerType)
	s.invalidator.VolunteersChanged(ctx, "registration")
	return v, nil
}

// UpdateStatus moves a volunteer to status, records the change in the outbox
// and invalidates the cached views.
func (s *VolunteerService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Volunteer, error) {
	next := domain.VolunteerStatus(status)
	if !next.Valid() {
		return nil, domain.ErrInvalidStatus()
	}

	var updated *domain.Volunteer
	err := s.tx.WithinTx(ctx, func(db repository.DBTX) error {
		current, err := s.volunteers.LockForUpdate(ctx, db, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFoundMsg("Volunteer not found")
		}

		updated, err = s.volunteers.UpdateStatus(ctx, db, id, next)
		if err != nil {
			return err
		}
		if current.Status == next {
			return nil
		}
		return s.outbox.Insert(ctx, db, domain.NewVolunteerStatusChangedEvent(id, current.Status, next))
	})
	if err != nil {
		if appErr, ok := domain.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, domain.ErrInternal("Failed to update volunteer status", err)
	}

	s.logger.Info("volunteer status updated", "volunteer_id", id, "status", next)
	s.invalidator.VolunteersChanged(ctx, "status_update")
	return updated, nil
}

// PageRequest selects one page of a listing.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the page to 1..1,000,000 and the limit to 1..100, defaulting to 10.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset is the number of rows skipped before the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// List returns one page of volunteers, newest first. Only unfiltered pages are
// cached; any active filter goes straight to the database.
func (s *VolunteerService) List(ctx context.Context, filter domain.VolunteerFilter, req PageRequest) (*domain.VolunteerPage, error) {
	req = req.Normalize()
	filter = filter.Normalize()

	var key string
	if !filter.IsFiltered() {
		key = cache.VolunteerPageKey(req.Page, req.Limit)
		var cached domain.VolunteerPage
		if s.cache.GetJSON(ctx, "volunteer_page", key, &cached) {
			return &cached, nil
		}
	}

	var (
		volunteers []domain.Volunteer
		total      int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		volunteers, err = s.volunteers.List(gctx, s.db, filter, req.Offset(), req.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.volunteers.Count(gctx, s.db, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.ErrInternal("Failed to fetch volunteers", err)
	}

	page := &domain.VolunteerPage{
		Volunteers: volunteers,
		Pagination: domain.Pagination{
			Total:      total,
			Page:       req.Page,
			Limit:      req.Limit,
			TotalPages: domain.TotalPages(total, req.Limit),
		},
	}

	if key != "" {
		s.cache.SetJSON(ctx, key, page, s.listTTL)
	}
	return page, nil
}

// Export returns every volunteer matching filter, newest first. Exports are never cached.
func (s *VolunteerService) Export(ctx context.Context, filter domain.VolunteerFilter) ([]domain.Volunteer, error) {
	volunteers, err := s.volunteers.ListAll(ctx, s.db, filter.Normalize())
	if err != nil {
		return nil, domain.ErrInternal("Failed to export volunteers", err)
	}
	return volunteers, nil
}
