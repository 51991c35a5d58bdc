package app

import (
	"context"
	"log/slog"
	"time"
)

// SessionPruner deletes expired admin sessions.
type SessionPruner interface {
	PruneSessions(ctx context.Context) (int64, error)
}

// RunSessionJanitor prunes expired sessions every interval until ctx is cancelled.
func RunSessionJanitor(ctx context.Context, pruner SessionPruner, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := pruner.PruneSessions(ctx)
			if err != nil {
				logger.Warn("session prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions pruned", "count", n)
			}
		}
	}
}
