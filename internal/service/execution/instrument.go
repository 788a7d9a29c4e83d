package execution

import (
	"context"
	"fmt"
	"log/slog"

	portagent "github.com/alanyang/agent-exec/internal/port/agent"
)

// instrument hands the agent its identity, trace and progress sink. Nothing
// here can fail the run: problems are logged and the agent runs uninstrumented.
func (c *Core) instrument(ctx context.Context, a portagent.Agent, r *run) {
	if ua, ok := a.(portagent.UserAware); ok && r.state.UserID != "" {
		ua.SetUserID(r.state.UserID)
	}
	if ta, ok := a.(portagent.TraceAware); ok {
		ta.SetTraceContext(r.tc)
	}

	inst, ok := a.(portagent.Instrumentable)
	if !ok {
		slog.WarnContext(ctx, "agent is not instrumentable, no progress events will be sent", r.logAttrs()...)
		return
	}
	if err := inst.AttachWebSocket(r.progress, r.target); err != nil {
		slog.WarnContext(ctx, "failed to attach websocket bridge", r.logAttrs("error", err)...)
	}
	if err := c.enhanceToolDispatcher(inst, r); err != nil {
		slog.WarnContext(ctx, "tool dispatcher not enhanced", r.logAttrs("error", err)...)
	}
}

func (c *Core) enhanceToolDispatcher(inst portagent.Instrumentable, r *run) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	d := inst.ToolDispatcher()
	if d == nil {
		return nil
	}
	if nd, ok := d.(*NotifyingDispatcher); ok {
		d = nd.Unwrap()
	}
	if err := inst.AttachToolDispatcher(NewNotifyingDispatcher(d, r.progress, r.target)); err != nil {
		return fmt.Errorf("attach tool dispatcher: %w", err)
	}
	return nil
}
