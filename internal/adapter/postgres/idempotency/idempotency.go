package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portidem "github.com/alanyang/agent-exec/internal/port/idempotency"
)

const defaultTTL = 24 * time.Hour

// Repository stores processed execution requests in processed_operations.
// Keys expire after ttl: an expired key reads as unseen and may be reused.
type Repository struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

var _ portidem.Store = (*Repository)(nil)

type Option func(*Repository)

func WithTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func New(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool, ttl: defaultTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check returns the stored operation for an unexpired key.
func (r *Repository) Check(ctx context.Context, key string) (portidem.Operation, bool, error) {
	query := `
		SELECT run_id, operation_type, request_hash, result_jsonb FROM processed_operations
		WHERE idempotency_key = $1 AND created_at > NOW() - make_interval(secs => $2)`

	var op portidem.Operation
	err := r.pool.QueryRow(ctx, query, key, r.ttl.Seconds()).Scan(&op.RunID, &op.Type, &op.RequestHash, &op.Result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return portidem.Operation{}, false, nil
		}
		return portidem.Operation{}, false, fmt.Errorf("checking idempotency key: %w", err)
	}
	return op, true, nil
}

// Store records op under key. While the key is live the first write wins; an
// expired row is overwritten.
func (r *Repository) Store(ctx context.Context, key string, op portidem.Operation) error {
	query := `
		INSERT INTO processed_operations (idempotency_key, run_id, operation_type, request_hash, result_jsonb, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (idempotency_key) DO UPDATE SET
			run_id         = EXCLUDED.run_id,
			operation_type = EXCLUDED.operation_type,
			request_hash   = EXCLUDED.request_hash,
			result_jsonb   = EXCLUDED.result_jsonb,
			created_at     = EXCLUDED.created_at
		WHERE processed_operations.created_at <= NOW() - make_interval(secs => $6)`

	_, err := r.pool.Exec(ctx, query, key, op.RunID, op.Type, op.RequestHash, op.Result, r.ttl.Seconds())
	if err != nil {
		return fmt.Errorf("storing idempotency key: %w", err)
	}
	return nil
}

// Purge deletes expired keys and reports how many were removed.
func (r *Repository) Purge(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM processed_operations WHERE created_at <= NOW() - make_interval(secs => $1)`,
		r.ttl.Seconds())
	if err != nil {
		return 0, fmt.Errorf("purging idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
