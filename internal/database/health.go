package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const healthTimeout = 2 * time.Second

var ErrDirtySchema = errors.New("schema migration left dirty")

// CheckHealth reports the pool ready once the database answers and the last
// migration completed cleanly.
func CheckHealth(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var dirty bool
	err := pool.QueryRow(ctx, `SELECT dirty FROM schema_migrations LIMIT 1`).Scan(&dirty)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errors.New("schema migrations not applied")
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case dirty:
		return ErrDirtySchema
	}
	return nil
}

func ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	return pool.Ping(ctx)
}
