package admin

import (
	"context"
	"net/http"

	"github.com/nysc/volunteers/internal/handler"
	"github.com/nysc/volunteers/internal/stats"
)

// StatisticsReader returns the dashboard aggregates.
type StatisticsReader interface {
	Get(ctx context.Context) (*stats.Snapshot, error)
}

// StatisticsHandler serves GET /admin/statistics.
type StatisticsHandler struct {
	stats StatisticsReader
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(stats StatisticsReader) *StatisticsHandler {
	return &StatisticsHandler{stats: stats}
}

// Get handles GET /admin/statistics.
func (h *StatisticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.stats.Get(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondSuccess(w, http.StatusOK, "", snap)
}
