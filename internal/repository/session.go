package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nysc/volunteers/internal/domain"
)

type sessionRepo struct{}

// NewSessionRepository returns a pgx-backed SessionRepository.
func NewSessionRepository() SessionRepository {
	return &sessionRepo{}
}

func (r *sessionRepo) Create(ctx context.Context, db DBTX, s *domain.Session) error {
	err := db.QueryRow(ctx,
		`INSERT INTO sessions (id, admin_id, token, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		s.ID, s.AdminID, s.Token, s.ExpiresAt,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) FindByToken(ctx context.Context, db DBTX, token string) (*domain.Session, error) {
	s := &domain.Session{}
	err := db.QueryRow(ctx,
		`SELECT id, admin_id, token, expires_at, created_at FROM sessions WHERE token = $1`, token,
	).Scan(&s.ID, &s.AdminID, &s.Token, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) error {
	if _, err := db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteByToken(ctx context.Context, db DBTX, token string) error {
	if _, err := db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, db DBTX) (int64, error) {
	tag, err := db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
