package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns a health check endpoint. The database decides the
// status code; the cache is only reported, since every cache failure is
// tolerated at request time.
func HealthHandler(db, cache Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		cacheState := "ok"
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("health: cache unreachable", "error", err)
			cacheState = "degraded"
		}

		if err := db.Ping(ctx); err != nil {
			RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "unreachable",
				"cache":    cacheState,
				"error":    err.Error(),
			})
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{
			"status":   "healthy",
			"database": "ok",
			"cache":    cacheState,
		})
	}
}
