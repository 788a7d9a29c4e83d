package builtin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	portagent "github.com/alanyang/agent-exec/internal/port/agent"
	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
	porttool "github.com/alanyang/agent-exec/internal/port/tooldispatch"
	"github.com/alanyang/agent-exec/internal/trace"
)

const EchoName = "echo"

// Context keys the echo agent reads from State.Context.
const (
	ctxUpper   = "upper"
	ctxDelayMS = "delay_ms"
)

// EchoAgent repeats the user request back through a tool call. It is the
// smallest agent that exercises every instrumentation hook.
type EchoAgent struct {
	tools    porttool.Dispatcher
	progress portnotifier.ProgressNotifier
	target   portnotifier.Target
	tc       *trace.Context
	userID   string
}

var (
	_ portagent.Agent          = (*EchoAgent)(nil)
	_ portagent.Instrumentable = (*EchoAgent)(nil)
	_ portagent.UserAware      = (*EchoAgent)(nil)
	_ portagent.TraceAware     = (*EchoAgent)(nil)
)

func NewEchoAgent() *EchoAgent {
	return &EchoAgent{tools: TextTools()}
}

func (a *EchoAgent) Name() string { return EchoName }

func (a *EchoAgent) SetUserID(userID string) { a.userID = userID }

func (a *EchoAgent) SetTraceContext(tc *trace.Context) { a.tc = tc }

func (a *EchoAgent) AttachWebSocket(progress portnotifier.ProgressNotifier, target portnotifier.Target) error {
	if progress == nil {
		return errors.New("progress notifier is nil")
	}
	a.progress = progress
	a.target = target
	return nil
}

func (a *EchoAgent) ToolDispatcher() porttool.Dispatcher { return a.tools }

func (a *EchoAgent) AttachToolDispatcher(d porttool.Dispatcher) error {
	if d == nil {
		return errors.New("tool dispatcher is nil")
	}
	a.tools = d
	return nil
}

// Execute echoes state.UserRequest. Context "upper": true switches to the upper
// tool; "delay_ms" sleeps first and honours cancellation.
func (a *EchoAgent) Execute(ctx context.Context, state *domainagent.State, runID uuid.UUID, notify bool) (any, error) {
	if state == nil {
		return nil, errors.New("state is required")
	}

	if d := delay(state.Context); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	tool := "echo"
	if up, _ := state.Context[ctxUpper].(bool); up {
		tool = "upper"
	}
	a.think(ctx, notify, fmt.Sprintf("Repeating the request with the %s tool", tool), 1)

	out, err := a.tools.Dispatch(ctx, porttool.Call{
		Tool:   tool,
		Params: map[string]any{"text": state.UserRequest},
	})
	if err != nil {
		return nil, fmt.Errorf("echo tool: %w", err)
	}

	a.think(ctx, notify, "Done", 2)
	if a.tc != nil {
		a.tc.AddEvent("echo.tool_called", map[string]any{"tool": tool})
	}

	return map[string]any{
		"echo":      out,
		"tool":      tool,
		"run_id":    runID.String(),
		"user_id":   a.userID,
		"thread_id": state.ThreadID,
	}, nil
}

func (a *EchoAgent) think(ctx context.Context, notify bool, reasoning string, step int) {
	if !notify || a.progress == nil {
		return
	}
	if err := a.progress.NotifyAgentThinking(ctx, a.target, reasoning, step); err != nil {
		slog.WarnContext(ctx, "echo: thinking notification failed", "run_id", a.target.RunID, "error", err)
	}
}

// delay accepts the JSON number or int forms of delay_ms.
func delay(c map[string]any) time.Duration {
	switch v := c[ctxDelayMS].(type) {
	case float64:
		return time.Duration(v) * time.Millisecond
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	}
	return 0
}
