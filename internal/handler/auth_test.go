package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysc/volunteers/internal/auth"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/guard"
	"github.com/nysc/volunteers/internal/service"
)

type stubSessions struct {
	loginErr    error
	logoutErr   error
	loggedOut   []string
	loginInputs []service.LoginInput
}

func (s *stubSessions) Login(_ context.Context, input service.LoginInput) (*service.LoginResult, error) {
	s.loginInputs = append(s.loginInputs, input)
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &service.LoginResult{
		Token:     "tok-123",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		Admin:     domain.AdminSummary{ID: uuid.New(), Email: input.Email, Name: "Admin", Role: auth.RoleSuperAdmin},
	}, nil
}

func (s *stubSessions) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return s.logoutErr
}

var loginPolicy = guard.Policy{Action: "login", MaxRequests: 5, Window: 900 * time.Second}

func newAuthHandler(t *testing.T, sessions *stubSessions) *AuthHandler {
	t.Helper()
	limiter, _ := newTestLimiter(t)
	return NewAuthHandler(sessions, limiter, loginPolicy, 24*time.Hour, true, noopLogger())
}

func postLogin(h *AuthHandler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/admin/auth/login", bytes.NewBufferString(body))
	r.RemoteAddr = "198.51.100.4:4000"
	w := httptest.NewRecorder()
	h.Login(w, r)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestLoginHandler_Success(t *testing.T) {
	sessions := &stubSessions{}
	h := newAuthHandler(t, sessions)

	w := postLogin(h, `{"email":"admin@example.lk","password":"correct horse"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))

	c := sessionCookie(w)
	require.NotNil(t, c)
	assert.Equal(t, "tok-123", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			Admin domain.AdminSummary `json:"admin"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Login successful", body.Message)
	assert.Equal(t, "admin@example.lk", body.Data.Admin.Email)
	assert.NotContains(t, w.Body.String(), "tok-123")
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	sessions := &stubSessions{loginErr: domain.ErrUnauthorized("Invalid email or password")}
	h := newAuthHandler(t, sessions)

	w := postLogin(h, `{"email":"admin@example.lk","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")
	assert.Nil(t, sessionCookie(w))
}

func TestLoginHandler_SixthAttemptIsBlocked(t *testing.T) {
	sessions := &stubSessions{loginErr: domain.ErrUnauthorized("Invalid email or password")}
	h := newAuthHandler(t, sessions)

	for i := 0; i < 5; i++ {
		w := postLogin(h, `{"email":"admin@example.lk","password":"nope"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	w := postLogin(h, `{"email":"admin@example.lk","password":"correct horse"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Too many login attempts. Please try again in 15 minutes.")
	assert.Len(t, sessions.loginInputs, 5)
}

func TestLogoutHandler(t *testing.T) {
	t.Run("deletes session and clears cookie", func(t *testing.T) {
		sessions := &stubSessions{}
		h := newAuthHandler(t, sessions)

		r := httptest.NewRequest(http.MethodPost, "/admin/auth/logout", nil)
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "tok-123"})
		w := httptest.NewRecorder()
		h.Logout(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"tok-123"}, sessions.loggedOut)
		c := sessionCookie(w)
		require.NotNil(t, c)
		assert.Negative(t, c.MaxAge)
		assert.Contains(t, w.Body.String(), "Logged out successfully")
	})

	t.Run("still succeeds when delete fails", func(t *testing.T) {
		sessions := &stubSessions{logoutErr: errors.New("db down")}
		h := newAuthHandler(t, sessions)

		w := httptest.NewRecorder()
		h.Logout(w, httptest.NewRequest(http.MethodPost, "/admin/auth/logout", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMeHandler(t *testing.T) {
	h := newAuthHandler(t, &stubSessions{})

	t.Run("returns admin summary", func(t *testing.T) {
		admin := &domain.AdminUser{ID: uuid.New(), Email: "admin@example.lk", Name: "Admin", Role: auth.RoleAdmin, PasswordHash: "secret-hash"}
		r := httptest.NewRequest(http.MethodGet, "/admin/auth/me", nil)
		r = r.WithContext(auth.WithAdmin(r.Context(), admin))
		w := httptest.NewRecorder()
		h.Me(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "admin@example.lk")
		assert.NotContains(t, w.Body.String(), "secret-hash")
	})

	t.Run("without admin is 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Me(w, httptest.NewRequest(http.MethodGet, "/admin/auth/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), auth.UnauthorizedMessage)
	})
}
