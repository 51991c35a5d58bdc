package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nysc/volunteers/internal/auth"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/repository"
)

const sessionTokenBytes = 32

// AuthService handles admin login, logout and session verification.
type AuthService struct {
	db         repository.DBTX
	admins     repository.AdminRepository
	sessions   repository.SessionRepository
	sessionTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	db repository.DBTX,
	admins repository.AdminRepository,
	sessions repository.SessionRepository,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		db:         db,
		admins:     admins,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string             `json:"-"`
	ExpiresAt time.Time          `json:"-"`
	Admin     domain.AdminSummary `json:"admin"`
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, domain.ErrValidation("Email and password are required")
	}

	admin, err := s.admins.FindByEmail(ctx, s.db, domain.NormalizeEmail(input.Email))
	if err != nil {
		return nil, domain.ErrInternal("Authentication failed", err)
	}
	if admin == nil {
		return nil, domain.ErrUnauthorized("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrUnauthorized("Invalid email or password")
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, domain.ErrInternal("Login failed", err)
	}

	session := &domain.Session{
		ID:        uuid.New(),
		AdminID:   admin.ID,
		Token:     token,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, s.db, session); err != nil {
		return nil, domain.ErrInternal("Login failed", err)
	}

	if err := s.admins.TouchLastLogin(ctx, s.db, admin.ID); err != nil {
		s.logger.Warn("failed to stamp last login", "admin_id", admin.ID, "error", err)
	}

	s.logger.Info("admin logged in", "admin_id", admin.ID, "email", admin.Email)
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, Admin: admin.Summary()}, nil
}

// Logout deletes the session holding token. An empty or unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, s.db, token); err != nil {
		return domain.ErrInternal("Logout failed", err)
	}
	return nil
}

// Authenticate resolves a session token to its admin. Expired sessions are
// deleted on the spot. It satisfies auth.SessionVerifier.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.AdminUser, error) {
	unauthorized := domain.ErrUnauthorized(auth.UnauthorizedMessage)
	if token == "" {
		return nil, unauthorized
	}

	session, err := s.sessions.FindByToken(ctx, s.db, token)
	if err != nil {
		return nil, domain.ErrInternal("Authentication failed", err)
	}
	if session == nil {
		return nil, unauthorized
	}
	if session.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, s.db, session.ID); err != nil {
			s.logger.Warn("failed to delete expired session", "session_id", session.ID, "error", err)
		}
		return nil, unauthorized
	}

	admin, err := s.admins.FindByID(ctx, s.db, session.AdminID)
	if err != nil {
		return nil, domain.ErrInternal("Authentication failed", err)
	}
	if admin == nil {
		return nil, unauthorized
	}
	return admin, nil
}

// PruneSessions deletes every expired session.
func (s *AuthService) PruneSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.db)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired sessions pruned", "count", n)
	}
	return n, nil
}

// SeedAdminInput describes the bootstrap admin account.
type SeedAdminInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// SeedAdmin creates the admin unless one with the same email exists.
// It reports whether a new account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, input SeedAdminInput) (bool, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || len(input.Password) < 8 {
		return false, domain.ErrValidation("admin email and a password of at least 8 characters are required")
	}
	if input.Role == "" {
		input.Role = auth.RoleSuperAdmin
	}
	if !auth.ValidRole(input.Role) {
		return false, domain.ErrValidation(fmt.Sprintf("unknown admin role %q", input.Role))
	}

	existing, err := s.admins.FindByEmail(ctx, s.db, email)
	if err != nil {
		return false, domain.ErrInternal("find admin", err)
	}
	if existing != nil {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, domain.ErrInternal("hash password", err)
	}

	admin := &domain.AdminUser{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         input.Name,
		Role:         input.Role,
	}
	if err := s.admins.Create(ctx, s.db, admin); err != nil {
		return false, domain.ErrInternal("create admin", err)
	}
	s.logger.Info("admin seeded", "admin_id", admin.ID, "email", email, "role", admin.Role)
	return true, nil
}

func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
