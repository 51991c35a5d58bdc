package admin

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/export"
	"github.com/nysc/volunteers/internal/handler"
	"github.com/nysc/volunteers/internal/service"
)

// VolunteerManager is the admin view of volunteer records.
type VolunteerManager interface {
	List(ctx context.Context, filter domain.VolunteerFilter, req service.PageRequest) (*domain.VolunteerPage, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Volunteer, error)
	Export(ctx context.Context, filter domain.VolunteerFilter) ([]domain.Volunteer, error)
}

// VolunteerAdminHandler handles admin volunteer listing, review and export.
type VolunteerAdminHandler struct {
	volunteers VolunteerManager
	now        func() time.Time
	logger     *slog.Logger
}

// NewVolunteerAdminHandler creates a new VolunteerAdminHandler.
func NewVolunteerAdminHandler(volunteers VolunteerManager, logger *slog.Logger) *VolunteerAdminHandler {
	return &VolunteerAdminHandler{volunteers: volunteers, now: time.Now, logger: logger}
}

type listResponse struct {
	Success    bool               `json:"success"`
	Data       []domain.Volunteer `json:"data"`
	Pagination domain.Pagination  `json:"pagination"`
}

// List handles GET /admin/volunteers?page&limit&search&district&volunteerType&status.
func (h *VolunteerAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.PageRequest{
		Page:  atoiOr(q.Get("page"), 1),
		Limit: atoiOr(q.Get("limit"), 10),
	}

	page, err := h.volunteers.List(r.Context(), filterFromQuery(r), req)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, listResponse{
		Success:    true,
		Data:       page.Volunteers,
		Pagination: page.Pagination,
	})
}

// UpdateStatus handles PATCH /admin/volunteers/{id}/status.
func (h *VolunteerAdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.RespondError(w, err)
		return
	}
	if !domain.VolunteerStatus(body.Status).Valid() {
		handler.RespondError(w, domain.ErrInvalidStatus())
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrNotFoundMsg("Volunteer not found"))
		return
	}

	updated, err := h.volunteers.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondSuccess(w, http.StatusOK, "Volunteer status updated successfully", updated)
}

// Export handles GET /admin/volunteers/export with the same filters as List.
func (h *VolunteerAdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	volunteers, err := h.volunteers.Export(r.Context(), filterFromQuery(r))
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, volunteers); err != nil {
		handler.RespondError(w, domain.ErrInternal("Failed to export volunteers", err))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(h.now())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("export write failed", "error", err)
	}
}

func filterFromQuery(r *http.Request) domain.VolunteerFilter {
	q := r.URL.Query()
	return domain.VolunteerFilter{
		Search:        strings.TrimSpace(q.Get("search")),
		District:      q.Get("district"),
		VolunteerType: q.Get("volunteerType"),
		Status:        q.Get("status"),
	}.Normalize()
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
