//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/nysc/volunteers/internal/auth"
	"github.com/nysc/volunteers/internal/service"
)

// DefaultAdminPassword is the password SeedAdmin uses.
const DefaultAdminPassword = "integration-secret"

// Do sends a JSON request to the test server. body may be nil.
func (env *TestEnv) Do(method, path string, body interface{}, cookie *http.Cookie) *http.Response {
	env.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// SeedAdmin creates an admin with the given role through the service layer.
func (env *TestEnv) SeedAdmin(email, role string) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := env.Services.Auth.SeedAdmin(ctx, service.SeedAdminInput{
		Email:    email,
		Password: DefaultAdminPassword,
		Name:     "Integration Admin",
		Role:     role,
	})
	if err != nil {
		env.t.Fatalf("SeedAdmin: %v", err)
	}
}

// LoginAdmin seeds an admin with role and returns its session cookie.
func (env *TestEnv) LoginAdmin(email, role string) *http.Cookie {
	env.t.Helper()
	env.SeedAdmin(email, role)

	resp := env.Do(http.MethodPost, "/admin/auth/login", map[string]string{
		"email": email, "password": DefaultAdminPassword,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("LoginAdmin: status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	env.t.Fatalf("LoginAdmin: no session cookie")
	return nil
}

// RegistrationBody returns a valid registration payload.
func RegistrationBody(name, email, whatsapp string) map[string]interface{} {
	return map[string]interface{}{
		"name":               name,
		"email":              email,
		"whatsapp":           whatsapp,
		"ageRange":           "20-30",
		"sex":                "female",
		"district":           "colombo",
		"volunteerType":      "medical",
		"startDate":          time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		"duration":           "2",
		"availableDistricts": []string{"colombo", "gampaha"},
	}
}

// Register posts a registration and fails the test unless it returns 201.
func (env *TestEnv) Register(name, email, whatsapp string) string {
	env.t.Helper()
	resp := env.Do(http.MethodPost, "/register", RegistrationBody(name, email, whatsapp), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("Register %s: status %d", email, resp.StatusCode)
	}
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	DecodeJSON(env.t, resp, &out)
	return out.Data.ID
}

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// CountOutboxEvents returns the number of outbox events for a volunteer.
func (env *TestEnv) CountOutboxEvents(volunteerID, eventType string) int {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM event_outbox WHERE aggregate_id = $1 AND event_type = $2`,
		volunteerID, eventType).Scan(&count)
	if err != nil {
		env.t.Fatalf("CountOutboxEvents: %v", err)
	}
	return count
}
