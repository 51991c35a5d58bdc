//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every application table.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx, `TRUNCATE sessions, admins, event_outbox, volunteers RESTART IDENTITY CASCADE`)
	if err != nil {
		env.t.Fatalf("CleanAll: %v", err)
	}
}
