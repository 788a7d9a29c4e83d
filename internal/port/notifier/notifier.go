package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Target scopes a notification to one run of one user.
type Target struct {
	RunID     uuid.UUID
	AgentName string
	UserID    string
	ThreadID  string
}

// LifecycleNotifier delivers the start and terminal events of a run.
// [ISP] Only the execution core emits lifecycle events.
type LifecycleNotifier interface {
	NotifyAgentStarted(ctx context.Context, t Target, traceCtx map[string]any) error
	NotifyAgentCompleted(ctx context.Context, t Target, result map[string]any, elapsed time.Duration, traceCtx map[string]any) error
	NotifyAgentError(ctx context.Context, t Target, errMsg string, traceCtx map[string]any) error
}

// ProgressNotifier delivers in-flight events emitted while an agent runs.
type ProgressNotifier interface {
	NotifyAgentThinking(ctx context.Context, t Target, reasoning string, step int) error
	NotifyToolExecuting(ctx context.Context, t Target, tool string, params map[string]any) error
	NotifyToolCompleted(ctx context.Context, t Target, tool string, result any, elapsed time.Duration) error
}

// Bridge is the full WebSocket notification surface.
// [DIP] The core depends on this abstraction, not on the hub or the event bus.
type Bridge interface {
	LifecycleNotifier
	ProgressNotifier
}
