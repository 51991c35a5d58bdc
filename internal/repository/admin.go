package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nysc/volunteers/internal/domain"
)

// PgAdminRepository implements AdminRepository using pgx.
type PgAdminRepository struct{}

// NewPgAdminRepository creates a new PgAdminRepository.
func NewPgAdminRepository() *PgAdminRepository {
	return &PgAdminRepository{}
}

const adminColumns = `id, email, password_hash, name, role, last_login_at, created_at, updated_at`

// FindByEmail returns an admin by email, or nil if not found.
func (r *PgAdminRepository) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.AdminUser, error) {
	row := db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
	return scanAdmin(row)
}

// FindByID returns an admin by ID, or nil if not found.
func (r *PgAdminRepository) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.AdminUser, error) {
	row := db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}

// Create inserts a new admin.
func (r *PgAdminRepository) Create(ctx context.Context, db DBTX, admin *domain.AdminUser) error {
	err := db.QueryRow(ctx,
		`INSERT INTO admins (id, email, password_hash, name, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		admin.ID, admin.Email, admin.PasswordHash, admin.Name, admin.Role,
	).Scan(&admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// TouchLastLogin stamps last_login_at with the database clock.
func (r *PgAdminRepository) TouchLastLogin(ctx context.Context, db DBTX, id uuid.UUID) error {
	tag, err := db.Exec(ctx,
		`UPDATE admins SET last_login_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("admin", id.String())
	}
	return nil
}

func scanAdmin(row pgx.Row) (*domain.AdminUser, error) {
	a := &domain.AdminUser{}
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role,
		&a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
