package wire

import (
	"context"
	"log/slog"
	"time"

	portidem "github.com/alanyang/agent-exec/internal/port/idempotency"
)

// sweepLockKey is the advisory lock key for the overdue-execution sweep.
const sweepLockKey int64 = 0x61676578 // "agex"

// StartSweeper periodically fails executions stuck in started past their
// timeout plus grace, e.g. after the process running them crashed, and purges
// expired idempotency keys. One sweep
// runs immediately so records orphaned by a restart are not held for a full
// interval. Only one instance sweeps at a time.
func (a *App) StartSweeper(ctx context.Context) {
	interval := a.Config.SweepInterval
	grace := a.Config.SweepGrace

	go func() {
		a.sweepOnce(ctx, grace)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.sweepOnce(ctx, grace)
			}
		}
	}()
	slog.Info("sweeper: started", "interval", interval, "grace", grace)
}

func (a *App) sweepOnce(ctx context.Context, grace time.Duration) {
	err := a.locker.WithLock(ctx, sweepLockKey, func(ctx context.Context) error {
		n, err := a.tracker.SweepOverdue(ctx, grace)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.InfoContext(ctx, "sweeper: failed overdue executions", "count", n)
		}
		if p, ok := a.idem.(portidem.Purger); ok {
			purged, err := p.Purge(ctx)
			if err != nil {
				slog.WarnContext(ctx, "sweeper: idempotency purge failed", "error", err)
			} else if purged > 0 {
				slog.InfoContext(ctx, "sweeper: purged idempotency keys", "count", purged)
			}
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "sweeper: sweep failed", "error", err)
	}
}
