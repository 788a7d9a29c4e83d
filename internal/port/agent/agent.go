package agent

import (
	"context"

	"github.com/google/uuid"

	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
	porttool "github.com/alanyang/agent-exec/internal/port/tooldispatch"
	"github.com/alanyang/agent-exec/internal/trace"
)

// Agent is a unit of work resolved by name from the registry.
// Execute returning (nil, nil) is a silent death and is reported as a failure.
type Agent interface {
	Name() string
	Execute(ctx context.Context, state *domainagent.State, runID uuid.UUID, notify bool) (any, error)
}

// TraceAware agents receive the run's trace context before execution.
type TraceAware interface {
	SetTraceContext(tc *trace.Context)
}

// UserAware agents receive the ambient user identity before execution.
type UserAware interface {
	SetUserID(userID string)
}

// Instrumentable is the single extension point for live notifications.
// [ISP] Agents only see the progress half of the bridge; lifecycle events belong to the core.
type Instrumentable interface {
	AttachWebSocket(progress portnotifier.ProgressNotifier, target portnotifier.Target) error
	// ToolDispatcher returns nil when the agent does not dispatch tools.
	ToolDispatcher() porttool.Dispatcher
	AttachToolDispatcher(d porttool.Dispatcher) error
}
