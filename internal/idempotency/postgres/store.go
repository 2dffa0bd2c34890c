// Package postgres persists create-order responses in the idempotency_keys table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store replays create-order responses keyed by Idempotency-Key. Rows older
// than the retention window are ignored and overwritten by the next save.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewStore keeps responses for ttl; zero keeps them indefinitely.
func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	const query = `
		SELECT status_code, body, order_id, fingerprint
		FROM idempotency_keys
		WHERE key = $1 AND created_at > $2
	`

	var resp ports.StoredResponse
	err := s.pool.QueryRow(ctx, query, key, s.cutoff()).Scan(
		&resp.StatusCode,
		&resp.Body,
		&resp.OrderID,
		&resp.Fingerprint,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select idempotency key: %w", err)
	}

	return &resp, nil
}

func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	const query = `
		INSERT INTO idempotency_keys (key, status_code, body, order_id, fingerprint)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			status_code = EXCLUDED.status_code,
			body        = EXCLUDED.body,
			order_id    = EXCLUDED.order_id,
			fingerprint = EXCLUDED.fingerprint,
			created_at  = now()
		WHERE idempotency_keys.created_at <= $6
	`

	_, err := s.pool.Exec(ctx, query,
		key,
		response.StatusCode,
		response.Body,
		response.OrderID,
		response.Fingerprint,
		s.cutoff(),
	)
	if err != nil {
		return fmt.Errorf("upsert idempotency key: %w", err)
	}

	return nil
}

// cutoff is the oldest created_at still replayed.
func (s *Store) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Unix(0, 0).UTC()
	}
	return time.Now().Add(-s.ttl).UTC()
}
