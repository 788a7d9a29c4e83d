package execution

import (
	"context"
	"sync"
	"time"

	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
)

// gatedProgress forwards progress events until the run's terminal event is
// sent. An agent still running past its deadline cannot emit after the terminal.
type gatedProgress struct {
	next portnotifier.ProgressNotifier

	mu     sync.RWMutex
	closed bool
}

var _ portnotifier.ProgressNotifier = (*gatedProgress)(nil)

func newGatedProgress(next portnotifier.ProgressNotifier) *gatedProgress {
	return &gatedProgress{next: next}
}

func (g *gatedProgress) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// open holds the read lock for the duration of a forwarded call, so close
// waits for in-flight progress events to land before the terminal one.
func (g *gatedProgress) open() bool {
	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return false
	}
	return true
}

func (g *gatedProgress) NotifyAgentThinking(ctx context.Context, t portnotifier.Target, reasoning string, step int) error {
	if !g.open() {
		return nil
	}
	defer g.mu.RUnlock()
	return g.next.NotifyAgentThinking(ctx, t, reasoning, step)
}

func (g *gatedProgress) NotifyToolExecuting(ctx context.Context, t portnotifier.Target, tool string, params map[string]any) error {
	if !g.open() {
		return nil
	}
	defer g.mu.RUnlock()
	return g.next.NotifyToolExecuting(ctx, t, tool, params)
}

func (g *gatedProgress) NotifyToolCompleted(ctx context.Context, t portnotifier.Target, tool string, result any, elapsed time.Duration) error {
	if !g.open() {
		return nil
	}
	defer g.mu.RUnlock()
	return g.next.NotifyToolCompleted(ctx, t, tool, result, elapsed)
}
