package heartbeat

import (
	"context"

	"github.com/google/uuid"
)

// Heartbeat is a liveness signal for one run. Implementations must derive
// pulses from evidence the agent is making progress, not from elapsed time.
type Heartbeat interface {
	Pulse(ctx context.Context)
	Count() int
	Stop()
}

// Factory starts a heartbeat for an execution. A nil Heartbeat disables it.
type Factory interface {
	Start(ctx context.Context, executionID uuid.UUID) Heartbeat
}

// Disabled is the default factory: no run ever gets a heartbeat.
type Disabled struct{}

func (Disabled) Start(context.Context, uuid.UUID) Heartbeat { return nil }
