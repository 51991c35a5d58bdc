package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nysc/volunteers/internal/cache"
	"github.com/nysc/volunteers/internal/service"
)

func cacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear cached volunteer views",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Delete the cached statistics and list pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The badger directory is locked by the API process that owns it.
			if c.cfg.CacheBackend == "badger" {
				return errors.New("cache flush needs CACHE_BACKEND=redis; the badger cache lives inside the API process, restart it to clear")
			}
			store, err := c.cacheStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("cache unreachable: %w", err)
			}
			if !service.NewCacheInvalidator(cache.New(store, c.logger), c.logger).VolunteersChanged(cmd.Context(), "manual flush") {
				return errors.New("volunteer cache flush incomplete; see log for details")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "volunteer caches flushed")
			return nil
		},
	})

	return cmd
}

func sessionsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Admin session housekeeping",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired admin sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := c.services(cmd.Context())
			if err != nil {
				return err
			}
			n, err := svcs.Auth.PruneSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("prune sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired sessions\n", n)
			return nil
		},
	})

	return cmd
}
