package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		db, cache  error
		wantStatus int
		wantCache  string
		wantState  string
	}{
		{"all ok", nil, nil, http.StatusOK, "ok", "healthy"},
		{"cache down is degraded", nil, errors.New("refused"), http.StatusOK, "degraded", "healthy"},
		{"database down", errors.New("refused"), nil, http.StatusServiceUnavailable, "ok", "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := HealthHandler(stubPinger{tt.db}, stubPinger{tt.cache}, noopLogger())
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantState, body["status"])
			assert.Equal(t, tt.wantCache, body["cache"])
		})
	}
}
