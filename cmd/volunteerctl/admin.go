package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nysc/volunteers/internal/auth"
	"github.com/nysc/volunteers/internal/service"
)

func seedAdminCmd(c *cli) *cobra.Command {
	var email, password, name, role string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the default admin if it does not exist",
		Long:  `Creates an admin account with a bcrypt-hashed password. Flags override DEFAULT_ADMIN_* settings. Running it again for an existing email changes nothing.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := c.services(cmd.Context())
			if err != nil {
				return err
			}

			input := service.SeedAdminInput{
				Email:    firstNonEmpty(email, c.cfg.DefaultAdminEmail),
				Password: firstNonEmpty(password, c.cfg.DefaultAdminPassword),
				Name:     firstNonEmpty(name, c.cfg.DefaultAdminName),
				Role:     role,
			}
			created, err := svcs.Auth.SeedAdmin(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", input.Email, firstNonEmpty(role, auth.RoleSuperAdmin))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", input.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email (default DEFAULT_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (default DEFAULT_ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&name, "name", "", "display name (default DEFAULT_ADMIN_NAME)")
	cmd.Flags().StringVar(&role, "role", auth.RoleSuperAdmin, "one of viewer, admin, superadmin")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
