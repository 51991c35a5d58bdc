package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nysc/volunteers/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Transactor runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(db DBTX) error) error
}

// VolunteerRepository provides access to volunteers.
type VolunteerRepository interface {
	// Create inserts a volunteer and fills Seq, CreatedAt and UpdatedAt.
	// Unique violations on email or whatsapp surface as domain conflict errors.
	Create(ctx context.Context, db DBTX, v *domain.Volunteer) error

	// FindByID returns a volunteer, or nil if it does not exist.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Volunteer, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the volunteer, or nil.
	LockForUpdate(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Volunteer, error)

	// UpdateStatus sets the status and returns the updated row.
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.VolunteerStatus) (*domain.Volunteer, error)

	// List returns one page of matching volunteers, newest first.
	List(ctx context.Context, db DBTX, filter domain.VolunteerFilter, offset, limit int) ([]domain.Volunteer, error)

	// Count returns the number of volunteers matching filter.
	Count(ctx context.Context, db DBTX, filter domain.VolunteerFilter) (int, error)

	// ListAll returns every matching volunteer, newest first. Used by export and statistics.
	ListAll(ctx context.Context, db DBTX, filter domain.VolunteerFilter) ([]domain.Volunteer, error)
}

// AdminRepository provides access to admins.
type AdminRepository interface {
	// FindByEmail returns an admin by email, or nil if not found.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.AdminUser, error)

	// FindByID returns an admin by ID, or nil if not found.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.AdminUser, error)

	// Create inserts a new admin.
	Create(ctx context.Context, db DBTX, admin *domain.AdminUser) error

	// TouchLastLogin stamps last_login_at.
	TouchLastLogin(ctx context.Context, db DBTX, id uuid.UUID) error
}

// SessionRepository provides access to sessions.
type SessionRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, db DBTX, s *domain.Session) error

	// FindByToken returns the session holding token, or nil.
	FindByToken(ctx context.Context, db DBTX, token string) (*domain.Session, error)

	// Delete removes a session by ID.
	Delete(ctx context.Context, db DBTX, id uuid.UUID) error

	// DeleteByToken removes the session holding token, if any.
	DeleteByToken(ctx context.Context, db DBTX, token string) error

	// DeleteExpired removes every session that expired before now and returns how many.
	DeleteExpired(ctx context.Context, db DBTX) (int64, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the volunteer write).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, error)

	// MarkPublished deletes published events.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
