package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nysc/volunteers/internal/auth"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/guard"
	"github.com/nysc/volunteers/internal/service"
)

// SessionManager opens and closes admin sessions.
type SessionManager interface {
	Login(ctx context.Context, input service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler handles admin login, logout and the current-admin lookup.
type AuthHandler struct {
	sessions     SessionManager
	limiter      *guard.RateLimiter
	policy       guard.Policy
	sessionTTL   time.Duration
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	sessions SessionManager,
	limiter *guard.RateLimiter,
	policy guard.Policy,
	sessionTTL time.Duration,
	cookieSecure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		sessions:     sessions,
		limiter:      limiter,
		policy:       policy,
		sessionTTL:   sessionTTL,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// Login handles POST /admin/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	id := h.policy.Identifier(ClientIP(r))
	if h.limiter.IsRateLimited(r.Context(), id, h.policy.MaxRequests, h.policy.Window) {
		RespondError(w, domain.ErrRateLimited("Too many login attempts. Please try again in 15 minutes.", h.policy.Window))
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.policy.MaxRequests))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(h.limiter.Remaining(r.Context(), id, h.policy.MaxRequests)))

	var input service.LoginInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.sessions.Login(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.sessionTTL, h.cookieSecure)
	RespondSuccess(w, http.StatusOK, "Login successful", result)
}

// Logout handles POST /admin/auth/logout. It always clears the cookie and answers 200.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		h.logger.Warn("logout failed to delete session", "error", err)
	}
	auth.ClearSessionCookie(w, h.cookieSecure)
	RespondSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// Me handles GET /admin/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	admin := auth.AdminFromContext(r.Context())
	if admin == nil {
		RespondError(w, domain.ErrUnauthorized(auth.UnauthorizedMessage))
		return
	}
	RespondSuccess(w, http.StatusOK, "", map[string]interface{}{"admin": admin.Summary()})
}
