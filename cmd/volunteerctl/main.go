package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/nysc/volunteers/internal/app"
	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/infra"
)

// cli holds what every subcommand needs. Connections are opened lazily so
// commands that only touch one backend do not require the other.
type cli struct {
	cfg    *infra.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	store  cache.Store
}

func (c *cli) database(ctx context.Context) (*pgxpool.Pool, error) {
	if c.pool == nil {
		pool, err := infra.NewPostgresPool(ctx, c.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.pool = pool
	}
	return c.pool, nil
}

func (c *cli) cacheStore(ctx context.Context) (cache.Store, error) {
	if c.store == nil {
		store, err := infra.OpenCacheStore(ctx, c.cfg, c.logger)
		if err != nil {
			return nil, err
		}
		c.store = store
	}
	return c.store, nil
}

// services builds the same service graph the API uses.
func (c *cli) services(ctx context.Context) (*app.Services, error) {
	pool, err := c.database(ctx)
	if err != nil {
		return nil, err
	}
	store, err := c.cacheStore(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewServices(app.Deps{DB: pool, Store: store, Config: c.cfg, Logger: c.logger}), nil
}

func (c *cli) close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("close cache", "error", err)
		}
		c.store = nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	rootCmd := &cobra.Command{
		Use:           "volunteerctl",
		Short:         "Operate the NYSC volunteer registration service",
		Long:          `Administrative tasks for the volunteer registration service: schema migrations, admin seeding, cache and session housekeeping.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = cfg
			c.logger = infra.NewLogger(cfg.SlogLevel())
			slog.SetDefault(c.logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	rootCmd.AddCommand(migrateCmd(c))
	rootCmd.AddCommand(seedAdminCmd(c))
	rootCmd.AddCommand(cacheCmd(c))
	rootCmd.AddCommand(sessionsCmd(c))
	rootCmd.AddCommand(eventsCmd(c))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		c.close()
		os.Exit(1)
	}
}
