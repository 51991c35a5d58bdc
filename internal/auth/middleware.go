package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/nysc/volunteers/internal/domain"
)

// CookieName is the session cookie set at login.
const CookieName = "session"

// UnauthorizedMessage is shown whenever a session is missing, unknown or expired.
const UnauthorizedMessage = "Unauthorized. Please login."

type contextKey string

const adminKey contextKey = "auth_admin"

// SessionVerifier resolves a session token to its admin.
type SessionVerifier interface {
	Authenticate(ctx context.Context, token string) (*domain.AdminUser, error)
}

// WithAdmin stores admin in ctx.
func WithAdmin(ctx context.Context, admin *domain.AdminUser) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

// AdminFromContext extracts the authenticated admin from request context.
func AdminFromContext(ctx context.Context) *domain.AdminUser {
	admin, _ := ctx.Value(adminKey).(*domain.AdminUser)
	return admin
}

// TokenFromRequest returns the session cookie value, or "".
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// RequireAdmin returns middleware that rejects requests without a live session.
// A failed session lookup answers 500 rather than 401.
func RequireAdmin(verifier SessionVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := verifier.Authenticate(r.Context(), TokenFromRequest(r))
			if err != nil {
				if appErr, ok := domain.AsAppError(err); ok && appErr.Status == http.StatusUnauthorized {
					writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", UnauthorizedMessage)
					return
				}
				logger.Error("session verification failed", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), admin)))
		})
	}
}

// RequireRole returns middleware that checks the admin role.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := AdminFromContext(r.Context())
			if admin == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", UnauthorizedMessage)
				return
			}
			if !roleSet[admin.Role] {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"code":    code,
		"message": message,
	})
}
