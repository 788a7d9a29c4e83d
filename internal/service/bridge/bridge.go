package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyang/agent-exec/internal/domain/event"
	porteventbus "github.com/alanyang/agent-exec/internal/port/eventbus"
	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
)

// Service turns run notifications into events on the bus. Delivery to sockets
// is the subscriber's concern.
// [DIP] The bus may be in-process, Postgres LISTEN/NOTIFY or NATS.
type Service struct {
	bus porteventbus.EventBus
}

var _ portnotifier.Bridge = (*Service)(nil)

func NewService(bus porteventbus.EventBus) *Service {
	return &Service{bus: bus}
}

func (s *Service) NotifyAgentStarted(ctx context.Context, t portnotifier.Target, traceCtx map[string]any) error {
	e := newEvent(event.TypeAgentStarted, t, traceCtx)
	return s.publish(ctx, e)
}

func (s *Service) NotifyAgentCompleted(ctx context.Context, t portnotifier.Target, result map[string]any, elapsed time.Duration, traceCtx map[string]any) error {
	e := newEvent(event.TypeAgentCompleted, t, traceCtx)
	e.Payload["result"] = result
	e.Payload["execution_time_ms"] = float64(elapsed.Microseconds()) / 1000
	return s.publish(ctx, e)
}

func (s *Service) NotifyAgentError(ctx context.Context, t portnotifier.Target, errMsg string, traceCtx map[string]any) error {
	e := newEvent(event.TypeAgentError, t, traceCtx)
	e.Payload["error"] = errMsg
	return s.publish(ctx, e)
}

func (s *Service) NotifyAgentThinking(ctx context.Context, t portnotifier.Target, reasoning string, step int) error {
	e := newEvent(event.TypeAgentThinking, t, nil)
	e.Payload["reasoning"] = reasoning
	e.Payload["step_number"] = step
	return s.publish(ctx, e)
}

func (s *Service) NotifyToolExecuting(ctx context.Context, t portnotifier.Target, tool string, params map[string]any) error {
	e := newEvent(event.TypeToolExecuting, t, nil)
	e.Payload["tool_name"] = tool
	if len(params) > 0 {
		e.Payload["parameters"] = params
	}
	return s.publish(ctx, e)
}

func (s *Service) NotifyToolCompleted(ctx context.Context, t portnotifier.Target, tool string, result any, elapsed time.Duration) error {
	e := newEvent(event.TypeToolCompleted, t, nil)
	e.Payload["tool_name"] = tool
	e.Payload["result"] = result
	e.Payload["execution_time_ms"] = float64(elapsed.Microseconds()) / 1000
	return s.publish(ctx, e)
}

func (s *Service) publish(ctx context.Context, e event.Event) error {
	if err := s.bus.Publish(ctx, e); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func newEvent(typ event.Type, t portnotifier.Target, traceCtx map[string]any) event.Event {
	e := event.New(typ, t.RunID, t.AgentName, t.UserID, t.ThreadID)
	if len(traceCtx) > 0 {
		e.TraceContext = traceCtx
	}
	return e
}
