//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nysc/volunteers/internal/app"
	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/infra"
)

const (
	postgresImage = "postgres:16-alpine"
	testDBUser    = "volunteers"
	testDBPass    = "volunteers"
	testDBName    = "volunteers_test"
)

// TestEnv holds all resources for an integration test.
type TestEnv struct {
	Server   *httptest.Server
	Pool     *pgxpool.Pool
	Redis    *miniredis.Miniredis
	Store    cache.Store
	Services *app.Services
	Config   *infra.Config
	t        *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

// startPostgres launches a throwaway Postgres container and returns its DSN.
// The container lives for the whole test binary.
func startPostgres(ctx context.Context) (string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     testDBUser,
				"POSTGRES_PASSWORD": testDBPass,
				"POSTGRES_DB":       testDBName,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testDBUser, testDBPass, host, port.Port(), testDBName), nil
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}

// SharedPool returns a pool on a migrated test database, starting the
// container on first use.
func SharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		dsn := os.Getenv("TEST_DATABASE_URL")
		if dsn == "" {
			dsn, poolErr = startPostgres(ctx)
			if poolErr != nil {
				return
			}
		}

		if err := infra.RunMigrationsFrom(filepath.Join(findProjectRoot(), "db", "migrations"), dsn); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			return
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

// TestConfig mirrors the production defaults with generous rate limits.
func TestConfig() *infra.Config {
	return &infra.Config{
		CacheBackend:          "redis",
		StatsCacheTTL:         300 * time.Second,
		ListCacheTTL:          60 * time.Second,
		CORSAllowedOrigins:    "*",
		SessionTTL:            24 * time.Hour,
		SessionSweepInterval:  10 * time.Minute,
		LoginRateLimit:        5,
		LoginRateWindow:       15 * time.Minute,
		RegisterRateLimit:     100,
		RegisterRateWindow:    time.Minute,
		AdminRateLimit:        0,
		KafkaTopicPrefix:      "nysc.",
		AllowInsecureDefaults: true,
	}
}

// NewTestEnv creates a test environment with an httptest.Server backed by the
// real router, the test database and an in-process Redis.
func NewTestEnv(t *testing.T, mutate ...func(cfg *infra.Config)) *TestEnv {
	t.Helper()

	pool := SharedPool(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewRedisStore(client)

	cfg := TestConfig()
	for _, m := range mutate {
		m(cfg)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	deps := app.Deps{DB: pool, Store: store, Config: cfg, Logger: logger}
	svcs := app.NewServices(deps)
	server := httptest.NewServer(app.NewRouter(deps, svcs))

	env := &TestEnv{
		Server:   server,
		Pool:     pool,
		Redis:    mr,
		Store:    store,
		Services: svcs,
		Config:   cfg,
		t:        t,
	}

	t.Cleanup(func() {
		server.Close()
		client.Close()
		env.CleanAll()
	})

	// Clean before test to ensure isolation
	env.CleanAll()

	return env
}
