package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/guard"
	"github.com/nysc/volunteers/internal/service"
)

// Registrar stores volunteer registrations.
type Registrar interface {
	Register(ctx context.Context, input service.RegisterInput, remoteIP string) (*domain.Volunteer, error)
}

// VolunteerHandler serves the public registration endpoint.
type VolunteerHandler struct {
	volunteers Registrar
	limiter    *guard.RateLimiter
	policy     guard.Policy
}

// NewVolunteerHandler creates a new VolunteerHandler.
func NewVolunteerHandler(volunteers Registrar, limiter *guard.RateLimiter, policy guard.Policy) *VolunteerHandler {
	return &VolunteerHandler{volunteers: volunteers, limiter: limiter, policy: policy}
}

// Register handles POST /register.
func (h *VolunteerHandler) Register(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)

	result := h.limiter.Check(r.Context(), h.policy, ip)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.policy.MaxRequests))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.Allowed {
		RespondError(w, domain.ErrRateLimited("Too many registration attempts. Please try again later.", result.RetryAfter))
		return
	}

	var input service.RegisterInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, err)
		return
	}

	v, err := h.volunteers.Register(r.Context(), input, ip)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, "Registration successful", map[string]interface{}{
		"id":       v.ID,
		"name":     v.Name,
		"whatsapp": v.WhatsApp,
	})
}
