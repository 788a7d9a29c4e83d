package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	portagent "github.com/alanyang/agent-exec/internal/port/agent"
	portheartbeat "github.com/alanyang/agent-exec/internal/port/heartbeat"
)

var (
	ErrSilentDeath = errors.New("agent died silently")
	ErrTimeout     = errors.New("agent execution timeout")
)

// SilentDeathError is returned when an agent yields neither a value nor an error.
type SilentDeathError struct {
	AgentName string
}

func (e *SilentDeathError) Error() string {
	return fmt.Sprintf("Agent %s died silently - returned None", e.AgentName)
}

func (e *SilentDeathError) Is(target error) bool { return target == ErrSilentDeath }

type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Agent execution timeout after %.1fs", e.After.Seconds())
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

type outcome struct {
	output    any
	err       error
	stateSize int
}

// executeWithProtection runs the agent under the deadline and turns every
// outcome into a Result carrying the elapsed duration and performance metrics.
// Once the agent goroutine starts, r.state belongs to it: the caller only
// reads the state size the goroutine reports, or the size taken before launch
// when the run is abandoned.
func (c *Core) executeWithProtection(ctx context.Context, a portagent.Agent, r *run, timeout time.Duration, hb portheartbeat.Heartbeat) domainexec.Result {
	start := c.now()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.stateSize = r.state.Size()
	done := make(chan outcome, 1)
	go func() {
		out, err := c.executeWithResultValidation(runCtx, a, r, hb)
		done <- outcome{output: out, err: err, stateSize: r.state.Size()}
	}()

	select {
	case o := <-done:
		r.stateSize = o.stateSize
		elapsed := c.now().Sub(start)
		perf := c.performanceMetrics(start, hb)
		if o.err != nil {
			return domainexec.Failed(r.ec.AgentName, o.err.Error()).Stamp(elapsed, perf)
		}
		return normalize(r.ec.AgentName, o.output, elapsed, perf)

	case <-runCtx.Done():
		elapsed := c.now().Sub(start)
		perf := c.performanceMetrics(start, hb)
		var err error = &TimeoutError{After: timeout}
		if !errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("agent execution cancelled: %w", runCtx.Err())
		}
		slog.WarnContext(ctx, "agent execution abandoned", r.logAttrs("error", err, "elapsed", elapsed)...)
		return domainexec.Failed(r.ec.AgentName, err.Error()).Stamp(elapsed, perf)
	}
}

// executeWithResultValidation instruments the agent, calls it once, and rejects
// a nil output as a silent death. Panics in agent code come back as errors.
func (c *Core) executeWithResultValidation(ctx context.Context, a portagent.Agent, r *run, hb portheartbeat.Heartbeat) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("agent %s panicked: %v", r.ec.AgentName, rec)
			slog.ErrorContext(ctx, "agent panicked", r.logAttrs("retry_count", r.ec.RetryCount, "panic", rec)...)
		}
	}()

	c.instrument(ctx, a, r)

	if hb != nil {
		hb.Pulse(ctx)
	}
	out, err = a.Execute(ctx, r.state, r.ec.RunID, true)
	if hb != nil {
		hb.Pulse(ctx)
	}
	if err != nil {
		slog.ErrorContext(ctx, "agent execution error", r.logAttrs("retry_count", r.ec.RetryCount, "error", err)...)
		return nil, err
	}

	if isNil(out) {
		return nil, &SilentDeathError{AgentName: r.ec.AgentName}
	}
	return out, nil
}

// normalize stamps agent-built results and wraps any other value as a success.
func normalize(agentName string, out any, elapsed time.Duration, perf map[string]any) domainexec.Result {
	var res domainexec.Result
	switch v := out.(type) {
	case domainexec.Result:
		res = v
	case *domainexec.Result:
		res = *v
	default:
		return domainexec.Succeeded(agentName, out).Stamp(elapsed, perf)
	}

	if res.AgentName == "" {
		res.AgentName = agentName
	}
	if !res.Success && res.Error == "" {
		res.Error = "unknown error"
	}
	return res.Stamp(elapsed, mergeMetrics(res.Metrics, perf))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
