//go:build integration

package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysc/volunteers/internal/auth"
	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/infra"
	"github.com/nysc/volunteers/internal/stats"
	"github.com/nysc/volunteers/test/integration/testutil"
)

func statusCount(s stats.Snapshot, status string) int {
	for _, c := range s.StatusStats {
		if strings.EqualFold(c.Status, status) {
			return c.Count
		}
	}
	return 0
}

func getStats(t *testing.T, env *testutil.TestEnv, cookie *http.Cookie) stats.Snapshot {
	t.Helper()
	resp := env.Do(http.MethodGet, "/admin/statistics", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Data stats.Snapshot `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &out)
	return out.Data
}

// ─── Registration ───────────────────────────────────────────────────────────

func TestRegister_StoresPendingVolunteerAndEvent(t *testing.T) {
	env := testutil.NewTestEnv(t)
	id := env.Register("Nimal Perera", "Nimal@Example.lk", "+94771234567")

	var status, email string
	err := env.Pool.QueryRow(t.Context(), `SELECT status, email FROM volunteers WHERE id = $1`, id).Scan(&status, &email)
	require.NoError(t, err)
	assert.Equal(t, "pending", status)
	assert.Equal(t, "nimal@example.lk", email)
	assert.Equal(t, 1, env.CountOutboxEvents(id, string(domain.EventVolunteerRegistered)))
}

func TestRegister_DuplicateEmailOrPhoneIsConflict(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.Register("Nimal Perera", "nimal@example.lk", "+94771234567")

	resp := env.Do(http.MethodPost, "/register", testutil.RegistrationBody("Other", "NIMAL@example.lk", "+94770000000"), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.Do(http.MethodPost, "/register", testutil.RegistrationBody("Other", "other@example.lk", "+94771234567"), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegister_RateLimitedPerIP(t *testing.T) {
	env := testutil.NewTestEnv(t, func(cfg *infra.Config) { cfg.RegisterRateLimit = 2 })

	for i := 0; i < 2; i++ {
		resp := env.Do(http.MethodPost, "/register", map[string]string{}, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	resp := env.Do(http.MethodPost, "/register", map[string]string{}, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

// ─── Admin auth ─────────────────────────────────────────────────────────────

func TestLogin_LogoutInvalidatesSession(t *testing.T) {
	env := testutil.NewTestEnv(t)
	cookie := env.LoginAdmin("admin@nysc.lk", auth.RoleAdmin)

	resp := env.Do(http.MethodGet, "/admin/auth/me", nil, cookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.Do(http.MethodPost, "/admin/auth/logout", nil, cookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.Do(http.MethodGet, "/admin/auth/me", nil, cookie)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_SixthFailedAttemptIsBlocked(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.SeedAdmin("admin@nysc.lk", auth.RoleAdmin)

	for i := 0; i < 5; i++ {
		resp := env.Do(http.MethodPost, "/admin/auth/login", map[string]string{"email": "admin@nysc.lk", "password": "wrong-password"}, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := env.Do(http.MethodPost, "/admin/auth/login", map[string]string{"email": "admin@nysc.lk", "password": testutil.DefaultAdminPassword}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

// ─── Review flow ────────────────────────────────────────────────────────────

func TestStatusUpdate_StatisticsReflectChangeImmediately(t *testing.T) {
	env := testutil.NewTestEnv(t)
	cookie := env.LoginAdmin("admin@nysc.lk", auth.RoleAdmin)
	id := env.Register("Nimal Perera", "nimal@example.lk", "+94771234567")

	before := getStats(t, env, cookie)
	require.Equal(t, 1, before.Overview.TotalVolunteers)
	require.Equal(t, 1, statusCount(before, "pending"))

	resp := env.Do(http.MethodPatch, "/admin/volunteers/"+id+"/status", map[string]string{"status": "approved"}, cookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	after := getStats(t, env, cookie)
	assert.Equal(t, 1, statusCount(after, "approved"))
	assert.Equal(t, 0, statusCount(after, "pending"))
	assert.Equal(t, 1, env.CountOutboxEvents(id, string(domain.EventVolunteerStatusChanged)))
}

func TestStatusUpdate_Errors(t *testing.T) {
	env := testutil.NewTestEnv(t)
	cookie := env.LoginAdmin("admin@nysc.lk", auth.RoleAdmin)
	id := env.Register("Nimal Perera", "nimal@example.lk", "+94771234567")

	resp := env.Do(http.MethodPatch, "/admin/volunteers/"+id+"/status", map[string]string{"status": "archived"}, cookie)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(http.MethodPatch, "/admin/volunteers/00000000-0000-0000-0000-000000000000/status", map[string]string{"status": "approved"}, cookie)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	viewer := env.LoginAdmin("viewer@nysc.lk", auth.RoleViewer)
	resp = env.Do(http.MethodPatch, "/admin/volunteers/"+id+"/status", map[string]string{"status": "approved"}, viewer)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestList_PaginationAndFilters(t *testing.T) {
	env := testutil.NewTestEnv(t)
	cookie := env.LoginAdmin("admin@nysc.lk", auth.RoleViewer)

	for i := 0; i < 12; i++ {
		env.Register("Volunteer "+string(rune('A'+i)), "v"+string(rune('a'+i))+"@example.lk", "+9477123450"+string(rune('0'+i%10))+string(rune('0'+i/10)))
	}

	resp := env.Do(http.MethodGet, "/admin/volunteers?page=2&limit=5", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Data       []domain.Volunteer `json:"data"`
		Pagination domain.Pagination  `json:"pagination"`
	}
	testutil.DecodeJSON(t, resp, &page)
	assert.Len(t, page.Data, 5)
	assert.Equal(t, domain.Pagination{Total: 12, Page: 2, Limit: 5, TotalPages: 3}, page.Pagination)
	assert.Equal(t, "Volunteer G", page.Data[0].Name)

	resp = env.Do(http.MethodGet, "/admin/volunteers?search=volunteer%20c", nil, cookie)
	testutil.DecodeJSON(t, resp, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Volunteer C", page.Data[0].Name)

	resp = env.Do(http.MethodGet, "/admin/volunteers?search=100%25", nil, cookie)
	testutil.DecodeJSON(t, resp, &page)
	assert.Empty(t, page.Data)
}

func TestExport_CSV(t *testing.T) {
	env := testutil.NewTestEnv(t)
	cookie := env.LoginAdmin("admin@nysc.lk", auth.RoleViewer)
	env.Register("Perera, Nimal", "nimal@example.lk", "+94771234567")

	resp := env.Do(http.MethodGet, "/admin/volunteers/export", nil, cookie)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv;charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "NYSC-Volunteers-")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(body), "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"Perera, Nimal"`)
	assert.Contains(t, lines[1], "colombo; gampaha")
}
