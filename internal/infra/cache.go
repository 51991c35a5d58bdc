package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nysc/volunteers/internal/cache"
)

// OpenCacheStore connects the cache backend named by CACHE_BACKEND.
// An unreachable Redis is not fatal: every cache caller tolerates failures,
// so the API starts degraded and the client reconnects on demand.
func OpenCacheStore(ctx context.Context, cfg *Config, logger *slog.Logger) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		store, err := cache.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup, continuing degraded", "error", err)
		} else {
			logger.Info("cache backend ready", "backend", "redis")
		}
		return store, nil
	case "badger":
		store, err := cache.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger cache: %w", err)
		}
		logger.Info("cache backend ready", "backend", "badger", "dir", cfg.BadgerDir)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
