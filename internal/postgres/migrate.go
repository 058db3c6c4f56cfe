package postgres

import (
	"context"
	"fmt"

	_ "embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema holds the bootstrap SQL. Applied at startup; every statement is
// idempotent so re-running on an existing database is safe.
//
//go:embed schema.sql
var Schema string

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
