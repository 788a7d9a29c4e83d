package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Registration is what the core hands the tracker before a run starts.
type Registration struct {
	AgentName     string
	CorrelationID string
	ThreadID      string
	UserID        string
	Timeout       time.Duration
}

// Tracker owns execution records: registered → started → completed|failed.
type Tracker interface {
	Register(ctx context.Context, reg Registration) (uuid.UUID, error)
	Start(ctx context.Context, id uuid.UUID) error
	// Complete marks the record completed when errMsg is empty, failed otherwise.
	Complete(ctx context.Context, id uuid.UUID, result any, errMsg string) error
	CollectMetrics(ctx context.Context, id uuid.UUID) (map[string]any, error)
}
