package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/alanyang/agent-exec/internal/domain/event"
	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
)

// Notification records a single call delivered to CaptureBridge.
type Notification struct {
	Type         event.Type
	Target       portnotifier.Target
	Error        string
	Result       map[string]any
	Elapsed      time.Duration
	Tool         string
	Reasoning    string
	TraceContext map[string]any
}

// CaptureBridge is a test double for notifier.Bridge that keeps every call in
// arrival order. It is safe for concurrent use.
type CaptureBridge struct {
	mu    sync.Mutex
	calls []Notification

	// Fail, when set, is returned from every call after it is recorded.
	Fail error
}

var _ portnotifier.Bridge = (*CaptureBridge)(nil)

func (c *CaptureBridge) NotifyAgentStarted(_ context.Context, t portnotifier.Target, traceCtx map[string]any) error {
	return c.record(Notification{Type: event.TypeAgentStarted, Target: t, TraceContext: traceCtx})
}

func (c *CaptureBridge) NotifyAgentCompleted(_ context.Context, t portnotifier.Target, result map[string]any, elapsed time.Duration, traceCtx map[string]any) error {
	return c.record(Notification{Type: event.TypeAgentCompleted, Target: t, Result: result, Elapsed: elapsed, TraceContext: traceCtx})
}

func (c *CaptureBridge) NotifyAgentError(_ context.Context, t portnotifier.Target, errMsg string, traceCtx map[string]any) error {
	return c.record(Notification{Type: event.TypeAgentError, Target: t, Error: errMsg, TraceContext: traceCtx})
}

func (c *CaptureBridge) NotifyAgentThinking(_ context.Context, t portnotifier.Target, reasoning string, _ int) error {
	return c.record(Notification{Type: event.TypeAgentThinking, Target: t, Reasoning: reasoning})
}

func (c *CaptureBridge) NotifyToolExecuting(_ context.Context, t portnotifier.Target, tool string, _ map[string]any) error {
	return c.record(Notification{Type: event.TypeToolExecuting, Target: t, Tool: tool})
}

func (c *CaptureBridge) NotifyToolCompleted(_ context.Context, t portnotifier.Target, tool string, _ any, elapsed time.Duration) error {
	return c.record(Notification{Type: event.TypeToolCompleted, Target: t, Tool: tool, Elapsed: elapsed})
}

// Calls returns a copy of every recorded notification.
func (c *CaptureBridge) Calls() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.calls))
	copy(out, c.calls)
	return out
}

// Types returns the recorded event types in order.
func (c *CaptureBridge) Types() []event.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Type, 0, len(c.calls))
	for _, n := range c.calls {
		out = append(out, n.Type)
	}
	return out
}

// OfType returns the recorded notifications of one type.
func (c *CaptureBridge) OfType(t event.Type) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Notification
	for _, n := range c.calls {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Reset clears all recorded calls.
func (c *CaptureBridge) Reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

func (c *CaptureBridge) record(n Notification) error {
	c.mu.Lock()
	c.calls = append(c.calls, n)
	c.mu.Unlock()
	return c.Fail
}
