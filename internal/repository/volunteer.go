package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nysc/volunteers/internal/domain"
)

const volunteerColumns = `id, seq, name, email, whatsapp, age_range, sex, district, current_district,
	volunteer_type, start_date, duration, available_districts, status, created_at, updated_at`

const uniqueViolation = "23505"

type volunteerRepo struct{}

// NewVolunteerRepository returns a pgx-backed VolunteerRepository.
func NewVolunteerRepository() VolunteerRepository {
	return &volunteerRepo{}
}

func (r *volunteerRepo) Create(ctx context.Context, db DBTX, v *domain.Volunteer) error {
	err := db.QueryRow(ctx, `
		INSERT INTO volunteers
		  (id, name, email, whatsapp, age_range, sex, district, current_district,
		   volunteer_type, start_date, duration, available_districts, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq, created_at, updated_at`,
		v.ID, v.Name, v.Email, v.WhatsApp, v.AgeRange, v.Sex, v.District, v.CurrentDistrict,
		v.VolunteerType, v.StartDate, v.Duration, v.AvailableDistricts, string(v.Status),
	).Scan(&v.Seq, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if conflict := conflictFromPg(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("insert volunteer: %w", err)
	}
	return nil
}

func (r *volunteerRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Volunteer, error) {
	row := db.QueryRow(ctx, `SELECT `+volunteerColumns+` FROM volunteers WHERE id = $1`, id)
	return scanVolunteer(row)
}

func (r *volunteerRepo) LockForUpdate(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Volunteer, error) {
	row := db.QueryRow(ctx, `SELECT `+volunteerColumns+` FROM volunteers WHERE id = $1 FOR UPDATE`, id)
	return scanVolunteer(row)
}

func (r *volunteerRepo) UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.VolunteerStatus) (*domain.Volunteer, error) {
	row := db.QueryRow(ctx, `
		UPDATE volunteers SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+volunteerColumns, string(status), id)
	v, err := scanVolunteer(row)
	if err != nil {
		return nil, fmt.Errorf("update volunteer status: %w", err)
	}
	if v == nil {
		return nil, domain.ErrNotFound("volunteer", id.String())
	}
	return v, nil
}

func (r *volunteerRepo) List(ctx context.Context, db DBTX, filter domain.VolunteerFilter, offset, limit int) ([]domain.Volunteer, error) {
	where, args := filterClause(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM volunteers %s
		ORDER BY created_at DESC, seq DESC
		LIMIT $%d OFFSET $%d`, volunteerColumns, where, len(args)-1, len(args))
	return r.query(ctx, db, query, args...)
}

func (r *volunteerRepo) Count(ctx context.Context, db DBTX, filter domain.VolunteerFilter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := db.QueryRow(ctx, `SELECT count(*) FROM volunteers `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count volunteers: %w", err)
	}
	return n, nil
}

func (r *volunteerRepo) ListAll(ctx context.Context, db DBTX, filter domain.VolunteerFilter) ([]domain.Volunteer, error) {
	where, args := filterClause(filter)
	query := fmt.Sprintf(`SELECT %s FROM volunteers %s ORDER BY created_at DESC, seq DESC`, volunteerColumns, where)
	return r.query(ctx, db, query, args...)
}

func (r *volunteerRepo) query(ctx context.Context, db DBTX, query string, args ...interface{}) ([]domain.Volunteer, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	defer rows.Close()

	volunteers := []domain.Volunteer{}
	for rows.Next() {
		v, err := scanVolunteerRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan volunteer: %w", err)
		}
		volunteers = append(volunteers, *v)
	}
	return volunteers, rows.Err()
}

// filterClause builds the WHERE clause for a filter. Search is a
// case-insensitive substring match on name, email or whatsapp.
func filterClause(filter domain.VolunteerFilter) (string, []interface{}) {
	f := filter.Normalize()
	var conds []string
	var args []interface{}

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR whatsapp ILIKE $%d)", n, n, n))
	}
	if f.District != "" {
		args = append(args, f.District)
		conds = append(conds, fmt.Sprintf("district = $%d", len(args)))
	}
	if f.VolunteerType != "" {
		args = append(args, f.VolunteerType)
		conds = append(conds, fmt.Sprintf("volunteer_type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func conflictFromPg(err error) *domain.AppError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "volunteers_email_key":
		return domain.ErrConflict("A volunteer with this email is already registered")
	case "volunteers_whatsapp_key":
		return domain.ErrConflict("A volunteer with this WhatsApp number is already registered")
	}
	return domain.ErrConflict("This volunteer is already registered")
}

func scanVolunteer(row pgx.Row) (*domain.Volunteer, error) {
	v, err := scanVolunteerRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanVolunteerRow(row pgx.Row) (*domain.Volunteer, error) {
	v := &domain.Volunteer{}
	var status string
	err := row.Scan(&v.ID, &v.Seq, &v.Name, &v.Email, &v.WhatsApp, &v.AgeRange, &v.Sex,
		&v.District, &v.CurrentDistrict, &v.VolunteerType, &v.StartDate, &v.Duration,
		&v.AvailableDistricts, &status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Status = domain.VolunteerStatus(status)
	return v, nil
}
