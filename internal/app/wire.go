package app

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nysc/volunteers/internal/auth"
	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/guard"
	"github.com/nysc/volunteers/internal/handler"
	adminhandler "github.com/nysc/volunteers/internal/handler/admin"
	"github.com/nysc/volunteers/internal/infra"
	"github.com/nysc/volunteers/internal/provider"
	"github.com/nysc/volunteers/internal/repository"
	"github.com/nysc/volunteers/internal/service"
)

// Database is the record store handle shared by every service.
// *pgxpool.Pool satisfies it.
type Database interface {
	repository.DBTX
	repository.TxBeginner
	Ping(ctx context.Context) error
}

// Deps holds the process-wide resources the services are built from.
type Deps struct {
	DB     Database
	Store  cache.Store
	Config *infra.Config
	Logger *slog.Logger
}

// Services groups the long-lived services shared by the router, the API
// process background work and volunteerctl.
type Services struct {
	Volunteers  *service.VolunteerService
	Statistics  *service.StatisticsService
	Auth        *service.AuthService
	Invalidator *service.CacheInvalidator
	Limiter     *guard.RateLimiter
}

// NewServices wires repositories, cache and providers into services.
func NewServices(deps Deps) *Services {
	cfg := deps.Config
	logger := deps.Logger

	// Repositories
	volunteerRepo := repository.NewVolunteerRepository()
	adminRepo := repository.NewPgAdminRepository()
	sessionRepo := repository.NewSessionRepository()
	outboxRepo := repository.NewOutboxRepository()
	tx := repository.NewTransactor(deps.DB)

	// Cache
	c := cache.New(deps.Store, logger)
	invalidator := service.NewCacheInvalidator(c, logger)

	// External providers
	captcha := provider.NewCaptchaVerifier(cfg.CaptchaSecret, cfg.CaptchaVerifyURL, logger)

	return &Services{
		Volunteers:  service.NewVolunteerService(deps.DB, tx, volunteerRepo, outboxRepo, c, invalidator, captcha, cfg.ListCacheTTL, logger),
		Statistics:  service.NewStatisticsService(deps.DB, volunteerRepo, c, cfg.StatsCacheTTL, logger),
		Auth:        service.NewAuthService(deps.DB, adminRepo, sessionRepo, cfg.SessionTTL, logger),
		Invalidator: invalidator,
		Limiter:     guard.NewRateLimiter(deps.Store, logger),
	}
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps Deps, svcs *Services) chi.Router {
	cfg := deps.Config
	logger := deps.Logger

	// Handlers
	volunteerHandler := handler.NewVolunteerHandler(svcs.Volunteers, svcs.Limiter, cfg.RegisterPolicy())
	authHandler := handler.NewAuthHandler(svcs.Auth, svcs.Limiter, cfg.LoginPolicy(), cfg.SessionTTL, cfg.CookieSecure, logger)

	// Admin handlers
	volunteerAdmin := adminhandler.NewVolunteerAdminHandler(svcs.Volunteers, logger)
	statsAdmin := adminhandler.NewStatisticsHandler(svcs.Statistics)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.Metrics)
	r.Use(handler.CORSWithOrigins(cfg.AllowedOrigins()...))

	// Operations (no auth)
	r.Get("/health", handler.HealthHandler(deps.DB, deps.Store, logger))
	r.Handle("/metrics", promhttp.Handler())

	// Public registration
	r.Post("/register", volunteerHandler.Register)

	r.Route("/admin", func(r chi.Router) {
		r.Use(handler.AdminThrottle(cfg.AdminRateLimit))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(auth.RequireAdmin(svcs.Auth, logger)).Get("/me", authHandler.Me)
		})

		// Admin-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(svcs.Auth, logger))

			r.Get("/statistics", statsAdmin.Get)

			r.Route("/volunteers", func(r chi.Router) {
				r.Get("/", volunteerAdmin.List)
				r.Get("/export", volunteerAdmin.Export)
				r.With(auth.RequireRole(auth.WriteRoles()...)).Patch("/{id}/status", volunteerAdmin.UpdateStatus)
			})
		})
	})

	return r
}
