package locker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	portlocker "github.com/alanyang/agent-exec/internal/port/locker"
)

// Locker serializes sweeps across replicas with session advisory locks.
// Lock and unlock must run on the same connection: pg_advisory_unlock from
// another session is a no-op.
type Locker struct {
	pool *pgxpool.Pool
}

var _ portlocker.AdvisoryLocker = (*Locker)(nil)

func New(pool *pgxpool.Pool) *Locker {
	return &Locker{pool: pool}
}

// WithLock runs fn while holding the lock for key. If another session holds
// it, fn is skipped and nil is returned.
func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection for advisory lock: %w", err)
	}
	defer conn.Release()

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", key) //nolint:errcheck

	return fn(ctx)
}
