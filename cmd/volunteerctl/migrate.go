package main

import (
	"github.com/spf13/cobra"

	"github.com/nysc/volunteers/internal/infra"
)

func migrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return infra.RunMigrations(c.cfg.DSN(), c.logger)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (all of them unless --steps is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return infra.RollbackMigrations(c.cfg.DSN(), steps, c.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back; 0 rolls back everything")
	cmd.AddCommand(down)

	return cmd
}
