package execution

import (
	"context"
	"log/slog"
	"time"

	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
	porttool "github.com/alanyang/agent-exec/internal/port/tooldispatch"
)

// NotifyingDispatcher decorates a tool dispatcher with tool_executing and
// tool_completed events. Notification failures never affect the tool call.
type NotifyingDispatcher struct {
	inner    porttool.Dispatcher
	progress portnotifier.ProgressNotifier
	target   portnotifier.Target
}

var _ porttool.Dispatcher = (*NotifyingDispatcher)(nil)

func NewNotifyingDispatcher(inner porttool.Dispatcher, progress portnotifier.ProgressNotifier, target portnotifier.Target) *NotifyingDispatcher {
	return &NotifyingDispatcher{inner: inner, progress: progress, target: target}
}

func (d *NotifyingDispatcher) Dispatch(ctx context.Context, call porttool.Call) (any, error) {
	if err := d.progress.NotifyToolExecuting(ctx, d.target, call.Tool, call.Params); err != nil {
		slog.WarnContext(ctx, "failed to notify tool executing", "run_id", d.target.RunID, "tool", call.Tool, "error", err)
	}

	start := time.Now()
	out, err := d.inner.Dispatch(ctx, call)
	elapsed := time.Since(start)

	reported := out
	if err != nil {
		reported = map[string]any{"error": err.Error()}
	}
	if nerr := d.progress.NotifyToolCompleted(ctx, d.target, call.Tool, reported, elapsed); nerr != nil {
		slog.WarnContext(ctx, "failed to notify tool completed", "run_id", d.target.RunID, "tool", call.Tool, "error", nerr)
	}
	return out, err
}

// Unwrap returns the undecorated dispatcher.
func (d *NotifyingDispatcher) Unwrap() porttool.Dispatcher { return d.inner }
