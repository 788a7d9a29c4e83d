package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"

	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	portheartbeat "github.com/alanyang/agent-exec/internal/port/heartbeat"
	portmetrics "github.com/alanyang/agent-exec/internal/port/metrics"
	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
	portregistry "github.com/alanyang/agent-exec/internal/port/registry"
	porttracker "github.com/alanyang/agent-exec/internal/port/tracker"
	"github.com/alanyang/agent-exec/internal/trace"
)

const DefaultTimeout = 30 * time.Second

// Core runs one agent at a time per call: it registers the run with the
// tracker, resolves the agent, executes it under a deadline, and reports the
// lifecycle to the bridge. ExecuteAgent never panics and never returns an error.
// [DIP] Every collaborator is injected; the core holds no process-wide state.
type Core struct {
	tracker  porttracker.Tracker
	registry portregistry.Registry
	bridge   portnotifier.Bridge

	metrics        portmetrics.Store
	heartbeats     portheartbeat.Factory
	tracer         oteltrace.Tracer
	defaultTimeout time.Duration
	now            func() time.Time
}

type Option func(*Core)

// WithMetricStore enables metric persistence. Without it metrics are only
// returned on the result.
func WithMetricStore(s portmetrics.Store) Option {
	return func(c *Core) { c.metrics = s }
}

func WithHeartbeat(f portheartbeat.Factory) Option {
	return func(c *Core) {
		if f != nil {
			c.heartbeats = f
		}
	}
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Core) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithTracer(t oteltrace.Tracer) Option {
	return func(c *Core) { c.tracer = t }
}

func NewCore(tracker porttracker.Tracker, registry portregistry.Registry, bridge portnotifier.Bridge, opts ...Option) *Core {
	c := &Core{
		tracker:        tracker,
		registry:       registry,
		bridge:         bridge,
		heartbeats:     portheartbeat.Disabled{},
		defaultTimeout: DefaultTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run is the per-call bookkeeping shared by the happy path and the outer boundary.
type run struct {
	ec       domainexec.Context
	state    *domainagent.State
	tc       *trace.Context
	span     *trace.Span
	target   portnotifier.Target
	progress *gatedProgress
	started  time.Time

	execID       uuid.UUID
	registered   bool
	terminalSent bool
	stateSize    int
}

func (r *run) logAttrs(extra ...any) []any {
	attrs := []any{
		"execution_id", r.execID,
		"run_id", r.ec.RunID,
		"agent", r.ec.AgentName,
		"user_id", r.state.UserID,
		"thread_id", r.state.ThreadID,
	}
	return append(attrs, extra...)
}

// ExecuteAgent runs the named agent against state. A timeout <= 0 uses the
// core's default. Every failure, including panics in collaborators, comes back
// as a failed Result.
func (c *Core) ExecuteAgent(ctx context.Context, ec domainexec.Context, state *domainagent.State, timeout time.Duration) (result domainexec.Result) {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	if state == nil {
		state = domainagent.NewState("", "", "")
	}
	if ec.RunID == uuid.Nil {
		ec.RunID = uuid.New()
	}

	r := &run{ec: ec, state: state, started: c.now()}
	r.target = portnotifier.Target{
		RunID:     ec.RunID,
		AgentName: ec.AgentName,
		UserID:    state.UserID,
		ThreadID:  state.ThreadID,
	}
	r.progress = newGatedProgress(c.bridge)

	r.tc = c.resolveTrace(ctx, ec, state)
	ctx, r.span = r.tc.StartSpan(ctx, "agent."+ec.AgentName, map[string]any{
		"agent.name": ec.AgentName,
		"run.id":     ec.RunID.String(),
		"user.id":    state.UserID,
	})

	defer func() {
		if rec := recover(); rec != nil {
			result = c.handleUnexpected(ctx, r, fmt.Errorf("panic: %v", rec))
		}
	}()

	execID, err := c.tracker.Register(ctx, porttracker.Registration{
		AgentName:     ec.AgentName,
		CorrelationID: ec.CorrelationID,
		ThreadID:      state.ThreadID,
		UserID:        state.UserID,
		Timeout:       timeout,
	})
	if err != nil {
		return c.handleUnexpected(ctx, r, fmt.Errorf("register execution: %w", err))
	}
	r.execID = execID
	r.registered = true

	hb := c.heartbeats.Start(ctx, execID)
	if hb != nil {
		defer hb.Stop()
	}

	ctx = trace.WithContext(ctx, r.tc)

	result, err = c.execute(ctx, r, timeout, hb)
	if err != nil {
		return c.handleUnexpected(ctx, r, err)
	}
	return result
}

// execute drives the run. Finalization (tracker completion, metrics, the
// terminal event) uses fin so a caller that goes away mid-run still leaves a
// terminal record and event behind.
func (c *Core) execute(ctx context.Context, r *run, timeout time.Duration, hb portheartbeat.Heartbeat) (domainexec.Result, error) {
	fin := context.WithoutCancel(ctx)
	if err := c.tracker.Start(ctx, r.execID); err != nil {
		return domainexec.Result{}, fmt.Errorf("start execution: %w", err)
	}

	a, err := c.registry.Get(ctx, r.ec.AgentName)
	if err != nil {
		if !errors.Is(err, portregistry.ErrNotFound) {
			return domainexec.Result{}, fmt.Errorf("resolve agent: %w", err)
		}
		return c.notFound(fin, r)
	}

	r.tc.AddEvent("agent.started", map[string]any{
		"agent_name":   r.ec.AgentName,
		"run_id":       r.ec.RunID.String(),
		"execution_id": r.execID.String(),
	})
	if err := c.bridge.NotifyAgentStarted(ctx, r.target, r.tc.ToWebSocketContext()); err != nil {
		slog.WarnContext(ctx, "failed to notify agent started", r.logAttrs("error", err)...)
	}

	result := c.executeWithProtection(ctx, a, r, timeout, hb)
	result.Metrics = c.collectMetrics(fin, r, result)
	c.persistMetrics(fin, r, result.Metrics)

	if err := c.complete(fin, r, result); err != nil {
		return domainexec.Result{}, err
	}
	return result, nil
}

// notFound is the lookup short-circuit: no started event, no duration, no metrics.
func (c *Core) notFound(ctx context.Context, r *run) (domainexec.Result, error) {
	msg := fmt.Sprintf("Agent %s not found", r.ec.AgentName)
	slog.WarnContext(ctx, "agent not found", r.logAttrs()...)

	if err := c.tracker.Complete(ctx, r.execID, nil, msg); err != nil {
		return domainexec.Result{}, fmt.Errorf("complete execution: %w", err)
	}
	r.tc.AddEvent("agent.error", map[string]any{"error": msg})
	r.span.RecordError(errors.New(msg))
	r.tc.FinishSpan(r.span)

	c.sendTerminal(ctx, r, domainexec.Failed(r.ec.AgentName, msg))
	return domainexec.Failed(r.ec.AgentName, msg), nil
}

func (c *Core) complete(ctx context.Context, r *run, result domainexec.Result) error {
	var err error
	if result.Success {
		err = c.tracker.Complete(ctx, r.execID, ResultPayload(result, r.ec.RunID), "")
	} else {
		err = c.tracker.Complete(ctx, r.execID, nil, result.Error)
	}
	if err != nil {
		return fmt.Errorf("complete execution: %w", err)
	}

	if result.Success {
		r.tc.AddEvent("agent.completed", map[string]any{
			"success":          true,
			"duration_seconds": result.DurationSeconds(),
		})
	} else {
		r.tc.AddEvent("agent.error", map[string]any{
			"error":            result.Error,
			"duration_seconds": result.DurationSeconds(),
		})
		r.span.RecordError(errors.New(result.Error))
	}
	r.tc.FinishSpan(r.span)

	c.sendTerminal(ctx, r, result)
	return nil
}

// sendTerminal closes the progress gate and emits exactly one terminal event.
func (c *Core) sendTerminal(ctx context.Context, r *run, result domainexec.Result) {
	r.progress.close()
	r.terminalSent = true

	traceCtx := r.tc.ToWebSocketContext()
	if result.Success {
		err := c.bridge.NotifyAgentCompleted(ctx, r.target, ResultPayload(result, r.ec.RunID), result.Duration, traceCtx)
		if err != nil {
			slog.WarnContext(ctx, "failed to notify agent completed", r.logAttrs("error", err)...)
		}
		return
	}
	if err := c.bridge.NotifyAgentError(ctx, r.target, result.Error, traceCtx); err != nil {
		slog.WarnContext(ctx, "failed to notify agent error", r.logAttrs("error", err)...)
	}
}

// handleUnexpected is the outer boundary. Every step here is isolated so that
// a failing collaborator cannot stop the others from running.
func (c *Core) handleUnexpected(ctx context.Context, r *run, cause error) (result domainexec.Result) {
	ctx = context.WithoutCancel(ctx)
	msg := "Unexpected error: " + cause.Error()
	result = domainexec.Failed(r.ec.AgentName, msg).Stamp(c.now().Sub(r.started), nil)
	slog.ErrorContext(ctx, "agent execution failed unexpectedly", r.logAttrs("error", cause)...)

	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "panic while finalizing failed execution", r.logAttrs("panic", rec)...)
		}
	}()

	r.tc.AddEvent("agent.exception", map[string]any{"error": cause.Error()})
	r.span.RecordError(cause)
	r.tc.FinishSpan(r.span)

	if r.registered {
		if err := c.tracker.Complete(ctx, r.execID, nil, msg); err != nil {
			slog.WarnContext(ctx, "failed to force-complete execution", r.logAttrs("error", err)...)
		}
	}
	if !r.terminalSent {
		c.sendTerminal(ctx, r, result)
	}
	return result
}

func (c *Core) resolveTrace(ctx context.Context, ec domainexec.Context, state *domainagent.State) *trace.Context {
	if parent, ok := trace.FromContext(ctx); ok {
		return parent.PropagateToChild()
	}
	return trace.New(c.tracer, trace.Attrs{
		UserID:        state.UserID,
		ThreadID:      state.ThreadID,
		CorrelationID: ec.CorrelationID,
	})
}

// ResultPayload is the wire view of a result sent to clients and stored on
// the execution record.
func ResultPayload(r domainexec.Result, runID uuid.UUID) map[string]any {
	out := map[string]any{
		"success":          r.Success,
		"agent_name":       r.AgentName,
		"run_id":           runID.String(),
		"duration_seconds": r.DurationSeconds(),
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.Metrics != nil {
		out["metrics"] = r.Metrics
	}
	if r.Output != nil {
		out["output"] = r.Output
	}
	return out
}
