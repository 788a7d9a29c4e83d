package metrics

import (
	"context"

	"github.com/alanyang/agent-exec/internal/domain/metric"
)

// Store persists one metric point. Callers isolate failures per point.
type Store interface {
	Record(ctx context.Context, p metric.Point) error
}
