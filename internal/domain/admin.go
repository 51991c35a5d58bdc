package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminUser represents an admins row.
type AdminUser struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// AdminSummary is the subset of an admin exposed to the dashboard.
type AdminSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
}

// Summary strips credentials and timestamps.
func (a *AdminUser) Summary() AdminSummary {
	return AdminSummary{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}

// Session represents a sessions row. A session is valid while now < ExpiresAt.
type Session struct {
	ID        uuid.UUID `json:"id"`
	AdminID   uuid.UUID `json:"adminId"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
