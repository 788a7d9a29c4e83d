package locker

import "context"

// AdvisoryLocker serialises critical sections across service instances.
// The stale-execution sweeper runs under it so two instances never fail the same record twice.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}
