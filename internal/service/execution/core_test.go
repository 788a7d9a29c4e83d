package execution_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/agent-exec/internal/adapter/memory"
	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	"github.com/alanyang/agent-exec/internal/domain/event"
	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	"github.com/alanyang/agent-exec/internal/domain/metric"
	"github.com/alanyang/agent-exec/internal/mocks"
	portagent "github.com/alanyang/agent-exec/internal/port/agent"
	portexec "github.com/alanyang/agent-exec/internal/port/execution"
	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
	portregistry "github.com/alanyang/agent-exec/internal/port/registry"
	porttracker "github.com/alanyang/agent-exec/internal/port/tracker"
	porttool "github.com/alanyang/agent-exec/internal/port/tooldispatch"
	agentsvc "github.com/alanyang/agent-exec/internal/service/agent"
	execsvc "github.com/alanyang/agent-exec/internal/service/execution"
	trackersvc "github.com/alanyang/agent-exec/internal/service/tracker"
	"github.com/alanyang/agent-exec/internal/testutil"
	"github.com/alanyang/agent-exec/internal/trace"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type transition struct{ from, to domainexec.Status }

// recordingRepo remembers every status transition that reached storage.
type recordingRepo struct {
	portexec.Repository
	mu          sync.Mutex
	transitions []transition
}

func (r *recordingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domainexec.Status, u portexec.StatusUpdate) error {
	if err := r.Repository.UpdateStatus(ctx, id, from, to, u); err != nil {
		return err
	}
	r.mu.Lock()
	r.transitions = append(r.transitions, transition{from, to})
	r.mu.Unlock()
	return nil
}

func (r *recordingRepo) Transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.transitions...)
}

type harness struct {
	core     *execsvc.Core
	repo     *recordingRepo
	registry *agentsvc.Service
	bridge   *testutil.CaptureBridge
}

func newHarness(t *testing.T, opts ...execsvc.Option) *harness {
	t.Helper()
	repo := &recordingRepo{Repository: memory.NewExecutionRepository(time.Hour)}
	registry := agentsvc.NewService()
	bridge := &testutil.CaptureBridge{}
	core := execsvc.NewCore(trackersvc.NewService(repo), registry, bridge, opts...)
	return &harness{core: core, repo: repo, registry: registry, bridge: bridge}
}

func (h *harness) register(t *testing.T, a portagent.Agent) {
	t.Helper()
	require.NoError(t, h.registry.Register(a.Name(), func() portagent.Agent { return a }))
}

func (h *harness) run(agentName string, timeout time.Duration) domainexec.Result {
	ec := domainexec.NewContext(agentName, "corr-1")
	return h.core.ExecuteAgent(context.Background(), ec, domainagent.NewState("user-1", "thread-1", "hello"), timeout)
}

type funcAgent struct {
	name string
	fn   func(ctx context.Context) (any, error)
}

func (a *funcAgent) Name() string { return a.name }
func (a *funcAgent) Execute(ctx context.Context, _ *domainagent.State, _ uuid.UUID, _ bool) (any, error) {
	return a.fn(ctx)
}

type toolFunc func(ctx context.Context, call porttool.Call) (any, error)

func (f toolFunc) Dispatch(ctx context.Context, call porttool.Call) (any, error) { return f(ctx, call) }

// chattyAgent thinks once and calls one tool before answering.
type chattyAgent struct {
	name       string
	delay      time.Duration
	progress   portnotifier.ProgressNotifier
	target     portnotifier.Target
	dispatcher porttool.Dispatcher
	userID     string
	traceCtx   *trace.Context
	done       chan struct{}
}

func newChattyAgent(name string) *chattyAgent {
	return &chattyAgent{
		name: name,
		dispatcher: toolFunc(func(context.Context, porttool.Call) (any, error) {
			return "tool-ok", nil
		}),
		done: make(chan struct{}),
	}
}

func (a *chattyAgent) Name() string                        { return a.name }
func (a *chattyAgent) SetUserID(id string)                 { a.userID = id }
func (a *chattyAgent) SetTraceContext(tc *trace.Context)   { a.traceCtx = tc }
func (a *chattyAgent) ToolDispatcher() porttool.Dispatcher { return a.dispatcher }

func (a *chattyAgent) AttachWebSocket(p portnotifier.ProgressNotifier, t portnotifier.Target) error {
	a.progress, a.target = p, t
	return nil
}

func (a *chattyAgent) AttachToolDispatcher(d porttool.Dispatcher) error {
	a.dispatcher = d
	return nil
}

func (a *chattyAgent) Execute(ctx context.Context, _ *domainagent.State, _ uuid.UUID, _ bool) (any, error) {
	defer close(a.done)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	_ = a.progress.NotifyAgentThinking(ctx, a.target, "planning", 1)
	out, err := a.dispatcher.Dispatch(ctx, porttool.Call{Tool: "lookup"})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "result": out}, nil
}

func sleepingAgent(name string, d time.Duration) *funcAgent {
	return &funcAgent{name: name, fn: func(ctx context.Context) (any, error) {
		select {
		case <-time.After(d):
			return map[string]any{"success": true}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
}

// ── Scenarios ─────────────────────────────────────────────────────────────────

func TestExecuteAgent_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		agent     portagent.Agent
		lookup    string
		timeout   time.Duration
		wantOK    bool
		wantErr   string
		exactErr  bool
		wantTypes []event.Type
	}{
		{
			name: "A success within timeout",
			agent: &funcAgent{name: "ok_agent", fn: func(context.Context) (any, error) {
				return map[string]any{"success": true, "result": "ok"}, nil
			}},
			wantOK:    true,
			wantTypes: []event.Type{event.TypeAgentStarted, event.TypeAgentCompleted},
		},
		{
			name:      "B timeout",
			agent:     sleepingAgent("slow_agent", 10*time.Second),
			timeout:   time.Second,
			wantErr:   "Agent execution timeout after 1.0s",
			exactErr:  true,
			wantTypes: []event.Type{event.TypeAgentStarted, event.TypeAgentError},
		},
		{
			name: "C silent death",
			agent: &funcAgent{name: "dead_agent", fn: func(context.Context) (any, error) {
				return nil, nil
			}},
			wantErr:   "died silently",
			wantTypes: []event.Type{event.TypeAgentStarted, event.TypeAgentError},
		},
		{
			name:      "D not found",
			lookup:    "missing_agent",
			wantErr:   "Agent missing_agent not found",
			exactErr:  true,
			wantTypes: []event.Type{event.TypeAgentError},
		},
		{
			name: "E agent error",
			agent: &funcAgent{name: "boom_agent", fn: func(context.Context) (any, error) {
				return nil, errors.New("boom")
			}},
			wantErr:   "boom",
			exactErr:  true,
			wantTypes: []event.Type{event.TypeAgentStarted, event.TypeAgentError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			name := tt.lookup
			if tt.agent != nil {
				h.register(t, tt.agent)
				name = tt.agent.Name()
			}

			res := h.run(name, tt.timeout)

			assert.Equal(t, tt.wantOK, res.Success)
			assert.Equal(t, name, res.AgentName)
			if tt.exactErr {
				assert.Equal(t, tt.wantErr, res.Error)
			} else if tt.wantErr != "" {
				assert.Contains(t, res.Error, tt.wantErr)
			} else {
				assert.Empty(t, res.Error)
			}
			assert.Equal(t, tt.wantTypes, h.bridge.Types())
		})
	}
}

// ── P1 no silent death ────────────────────────────────────────────────────────

func TestExecuteAgent_NilOutputsAreSilentDeaths(t *testing.T) {
	var nilResult *domainexec.Result
	var nilMap map[string]any

	outputs := map[string]any{
		"untyped nil":    nil,
		"nil result ptr": nilResult,
		"nil map":        nilMap,
	}
	for name, out := range outputs {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.register(t, &funcAgent{name: "quiet", fn: func(context.Context) (any, error) { return out, nil }})

			res := h.run("quiet", 0)

			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "died silently")
			assert.Equal(t, "Agent quiet died silently - returned None", res.Error)
			assert.Greater(t, res.Duration, time.Duration(0))
		})
	}
}

func TestSilentDeathError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &execsvc.SilentDeathError{AgentName: "a"})
	assert.ErrorIs(t, err, execsvc.ErrSilentDeath)
	assert.NotErrorIs(t, err, execsvc.ErrTimeout)
}

// ── P2 timeout fidelity ───────────────────────────────────────────────────────

func TestExecuteAgent_TimeoutDurationCoversDeadline(t *testing.T) {
	h := newHarness(t)
	h.register(t, sleepingAgent("slow", 5*time.Second))

	res := h.run("slow", 200*time.Millisecond)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timeout")
	assert.Equal(t, "Agent execution timeout after 0.2s", res.Error)
	assert.GreaterOrEqual(t, res.Duration, 200*time.Millisecond)
	assert.Contains(t, res.Metrics, "execution_time_ms")
}

func TestExecuteAgent_DefaultTimeout(t *testing.T) {
	h := newHarness(t, execsvc.WithDefaultTimeout(100*time.Millisecond))
	h.register(t, sleepingAgent("slow", 5*time.Second))

	res := h.run("slow", 0)

	assert.Equal(t, "Agent execution timeout after 0.1s", res.Error)
}

func TestExecuteAgent_TimeoutIgnoredByAgentDropsLateProgress(t *testing.T) {
	h := newHarness(t)
	a := newChattyAgent("stubborn")
	a.delay = 300 * time.Millisecond
	h.register(t, a)

	res := h.run("stubborn", 50*time.Millisecond)
	require.False(t, res.Success)

	select {
	case <-a.done:
	case <-time.After(2 * time.Second):
		t.Fatal("agent never finished")
	}

	assert.Equal(t, []event.Type{event.TypeAgentStarted, event.TypeAgentError}, h.bridge.Types())
}

// ctxRepo and ctxBridge fail once their context is done, the way pgx and
// pg_notify do.
type ctxRepo struct{ portexec.Repository }

func (r ctxRepo) Create(ctx context.Context, rec domainexec.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Repository.Create(ctx, rec)
}

func (r ctxRepo) GetByID(ctx context.Context, id uuid.UUID) (domainexec.Record, error) {
	if err := ctx.Err(); err != nil {
		return domainexec.Record{}, err
	}
	return r.Repository.GetByID(ctx, id)
}

func (r ctxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domainexec.Status, u portexec.StatusUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Repository.UpdateStatus(ctx, id, from, to, u)
}

type ctxBridge struct{ *testutil.CaptureBridge }

func (b ctxBridge) NotifyAgentStarted(ctx context.Context, t portnotifier.Target, tc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.CaptureBridge.NotifyAgentStarted(ctx, t, tc)
}

func (b ctxBridge) NotifyAgentCompleted(ctx context.Context, t portnotifier.Target, result map[string]any, elapsed time.Duration, tc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.CaptureBridge.NotifyAgentCompleted(ctx, t, result, elapsed, tc)
}

func (b ctxBridge) NotifyAgentError(ctx context.Context, t portnotifier.Target, errMsg string, tc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.CaptureBridge.NotifyAgentError(ctx, t, errMsg, tc)
}

func TestExecuteAgent_ParentCancellation(t *testing.T) {
	repo := memory.NewExecutionRepository(time.Hour)
	tracker := trackersvc.NewService(ctxRepo{Repository: repo})
	registry := agentsvc.NewService()
	bridge := ctxBridge{CaptureBridge: &testutil.CaptureBridge{}}
	store := &flakyMetricStore{}
	core := execsvc.NewCore(tracker, registry, bridge, execsvc.WithMetricStore(store))
	a := sleepingAgent("slow", 5*time.Second)
	require.NoError(t, registry.Register(a.Name(), func() portagent.Agent { return a }))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res := core.ExecuteAgent(ctx, domainexec.NewContext("slow", ""), domainagent.NewState("u", "t", ""), time.Minute)

	assert.False(t, res.Success)
	assert.Equal(t, "agent execution cancelled: context canceled", res.Error)
	assert.Equal(t, []event.Type{event.TypeAgentStarted, event.TypeAgentError}, bridge.Types())
	assert.NotEmpty(t, store.seen, "metrics are persisted after cancellation")

	recs, err := repo.List(context.Background(), domainexec.ListFilters{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domainexec.StatusFailed, recs[0].Status)
	assert.Equal(t, res.Error, recs[0].Error)
}

func TestExecuteAgent_CancelledBeforeStartStillFinalizes(t *testing.T) {
	repo := memory.NewExecutionRepository(time.Hour)
	ctrl := gomock.NewController(t)
	tracker := mocks.NewMockTracker(ctrl)
	inner := trackersvc.NewService(ctxRepo{Repository: repo})
	bridge := ctxBridge{CaptureBridge: &testutil.CaptureBridge{}}

	ctx, cancel := context.WithCancel(context.Background())
	tracker.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, reg porttracker.Registration) (uuid.UUID, error) {
			id, err := inner.Register(ctx, reg)
			cancel()
			return id, err
		})
	tracker.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(inner.Start)
	tracker.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(inner.Complete)

	core := execsvc.NewCore(tracker, agentsvc.NewService(), bridge)
	res := core.ExecuteAgent(ctx, domainexec.NewContext("a", ""), domainagent.NewState("u", "t", ""), 0)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Unexpected error: start execution")
	assert.Equal(t, []event.Type{event.TypeAgentError}, bridge.Types())

	recs, err := repo.List(context.Background(), domainexec.ListFilters{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domainexec.StatusFailed, recs[0].Status)
}

// stateWriter keeps writing to its state after the deadline, ignoring ctx.
type stateWriter struct {
	stop    chan struct{}
	stopped chan struct{}
}

func (a *stateWriter) Name() string { return "state_writer" }

func (a *stateWriter) Execute(_ context.Context, s *domainagent.State, _ uuid.UUID, _ bool) (any, error) {
	defer close(a.stopped)
	for i := 0; ; i++ {
		select {
		case <-a.stop:
			return "late", nil
		default:
			s.Context[fmt.Sprintf("k%d", i%16)] = i
		}
	}
}

func TestExecuteAgent_AbandonedAgentOwnsState(t *testing.T) {
	h := newHarness(t)
	a := &stateWriter{stop: make(chan struct{}), stopped: make(chan struct{})}
	h.register(t, a)

	want := domainagent.NewState("user-1", "thread-1", "hello").Size()
	res := h.run(a.Name(), 20*time.Millisecond)
	close(a.stop)
	<-a.stopped

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timeout")
	assert.Equal(t, want, res.Metrics["state_size"], "size is taken before the agent starts")
}

func TestExecuteAgent_StateSizeAfterRun(t *testing.T) {
	h := newHarness(t)
	h.register(t, &stateful{})

	state := domainagent.NewState("user-1", "thread-1", "hello")
	res := h.core.ExecuteAgent(context.Background(), domainexec.NewContext("stateful", ""), state, 0)

	require.True(t, res.Success)
	assert.Equal(t, state.Size(), res.Metrics["state_size"])
}

type stateful struct{}

func (stateful) Name() string { return "stateful" }
func (stateful) Execute(_ context.Context, s *domainagent.State, _ uuid.UUID, _ bool) (any, error) {
	s.Context["notes"] = "written during the run"
	return "ok", nil
}

// ── P3 not-found short-circuit ────────────────────────────────────────────────

func TestExecuteAgent_NotFoundWithMockBridge(t *testing.T) {
	ctrl := gomock.NewController(t)
	bridge := mocks.NewMockBridge(ctrl)
	registry := mocks.NewMockRegistry(ctrl)
	tracker := trackersvc.NewService(memory.NewExecutionRepository(time.Hour))

	registry.EXPECT().Get(gomock.Any(), "missing_agent").
		Return(nil, fmt.Errorf("agent missing_agent: %w", portregistry.ErrNotFound))
	bridge.EXPECT().NotifyAgentError(gomock.Any(), gomock.Any(), "Agent missing_agent not found", gomock.Any()).
		Return(nil).Times(1)

	core := execsvc.NewCore(tracker, registry, bridge)
	res := core.ExecuteAgent(context.Background(), domainexec.NewContext("missing_agent", ""), domainagent.NewState("u", "t", ""), 0)

	assert.False(t, res.Success)
	assert.Zero(t, res.Duration)
	assert.Nil(t, res.Metrics)
}

// ── P4 terminal notification ──────────────────────────────────────────────────

func TestExecuteAgent_ExactlyOneTerminalNotification(t *testing.T) {
	agents := []portagent.Agent{
		&funcAgent{name: "ok", fn: func(context.Context) (any, error) { return "done", nil }},
		&funcAgent{name: "err", fn: func(context.Context) (any, error) { return nil, errors.New("bad") }},
		&funcAgent{name: "nil", fn: func(context.Context) (any, error) { return nil, nil }},
		&funcAgent{name: "panic", fn: func(context.Context) (any, error) { panic("kaboom") }},
		sleepingAgent("slow", time.Second),
	}

	for _, a := range agents {
		t.Run(a.Name(), func(t *testing.T) {
			h := newHarness(t)
			h.register(t, a)

			h.run(a.Name(), 50*time.Millisecond)

			terminal := 0
			for _, typ := range h.bridge.Types() {
				if typ.IsTerminal() {
					terminal++
				}
			}
			assert.Equal(t, 1, terminal)
			assert.Equal(t, event.TypeAgentStarted, h.bridge.Types()[0])
		})
	}
}

func TestExecuteAgent_PanicIsAgentError(t *testing.T) {
	h := newHarness(t)
	h.register(t, &funcAgent{name: "panicky", fn: func(context.Context) (any, error) { panic("kaboom") }})

	res := h.run("panicky", 0)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "kaboom")
	assert.NotContains(t, res.Error, "Unexpected error")
}

// ── P5 monotonic tracker transitions ──────────────────────────────────────────

func TestExecuteAgent_TrackerTransitions(t *testing.T) {
	tests := []struct {
		name  string
		agent portagent.Agent
		want  domainexec.Status
	}{
		{"success", &funcAgent{name: "a", fn: func(context.Context) (any, error) { return 1, nil }}, domainexec.StatusCompleted},
		{"failure", &funcAgent{name: "a", fn: func(context.Context) (any, error) { return nil, errors.New("x") }}, domainexec.StatusFailed},
		{"not found", nil, domainexec.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.agent != nil {
				h.register(t, tt.agent)
			}

			h.run("a", 0)

			assert.Equal(t, []transition{
				{domainexec.StatusRegistered, domainexec.StatusStarted},
				{domainexec.StatusStarted, tt.want},
			}, h.repo.Transitions())

			recs, err := h.repo.List(context.Background(), domainexec.ListFilters{})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.want, recs[0].Status)
			assert.Equal(t, "user-1", recs[0].UserID)
			assert.Equal(t, "corr-1", recs[0].CorrelationID)
		})
	}
}

func TestExecuteAgent_TrackerStartFailsIsUnexpected(t *testing.T) {
	ctrl := gomock.NewController(t)
	tracker := mocks.NewMockTracker(ctrl)
	registry := mocks.NewMockRegistry(ctrl)
	bridge := &testutil.CaptureBridge{}
	execID := uuid.New()

	gomock.InOrder(
		tracker.EXPECT().Register(gomock.Any(), gomock.Any()).Return(execID, nil),
		tracker.EXPECT().Start(gomock.Any(), execID).Return(errors.New("db down")),
		tracker.EXPECT().Complete(gomock.Any(), execID, nil, "Unexpected error: start execution: db down").Return(nil),
	)

	core := execsvc.NewCore(tracker, registry, bridge)
	res := core.ExecuteAgent(context.Background(), domainexec.NewContext("a", ""), domainagent.NewState("u", "t", ""), 0)

	assert.False(t, res.Success)
	assert.Equal(t, "Unexpected error: start execution: db down", res.Error)
	assert.Equal(t, []event.Type{event.TypeAgentError}, bridge.Types())
}

func TestExecuteAgent_RegisterFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	tracker := mocks.NewMockTracker(ctrl)
	registry := mocks.NewMockRegistry(ctrl)
	bridge := &testutil.CaptureBridge{}

	tracker.EXPECT().Register(gomock.Any(), gomock.Any()).Return(uuid.Nil, errors.New("full"))

	core := execsvc.NewCore(tracker, registry, bridge)
	res := core.ExecuteAgent(context.Background(), domainexec.NewContext("a", ""), nil, 0)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Unexpected error: register execution: full")
	assert.Equal(t, []event.Type{event.TypeAgentError}, bridge.Types())
}

func TestExecuteAgent_PanickingBridgeStillReturnsResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	bridge := mocks.NewMockBridge(ctrl)
	h := newHarness(t)
	core := execsvc.NewCore(trackersvc.NewService(h.repo), h.registry, bridge)
	h.register(t, &funcAgent{name: "ok", fn: func(context.Context) (any, error) { return "x", nil }})

	bridge.EXPECT().NotifyAgentStarted(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, portnotifier.Target, map[string]any) error { panic("socket gone") })
	bridge.EXPECT().NotifyAgentError(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	res := core.ExecuteAgent(context.Background(), domainexec.NewContext("ok", ""), domainagent.NewState("u", "t", ""), 0)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Unexpected error: panic: socket gone")
}

func TestExecuteAgent_BridgeErrorsAreNotFatal(t *testing.T) {
	h := newHarness(t)
	h.bridge.Fail = errors.New("no sockets")
	h.register(t, &funcAgent{name: "ok", fn: func(context.Context) (any, error) { return "x", nil }})

	res := h.run("ok", 0)

	assert.True(t, res.Success)
	assert.Equal(t, []event.Type{event.TypeAgentStarted, event.TypeAgentCompleted}, h.bridge.Types())
}

// ── P6 metric isolation ───────────────────────────────────────────────────────

type flakyMetricStore struct {
	failOn string
	mu     sync.Mutex
	seen   []string
}

func (s *flakyMetricStore) Record(_ context.Context, p metric.Point) error {
	s.mu.Lock()
	s.seen = append(s.seen, p.Name)
	s.mu.Unlock()
	if p.Name == s.failOn {
		return errors.New("disk full")
	}
	return nil
}

func TestExecuteAgent_MetricPersistenceIsolated(t *testing.T) {
	store := &flakyMetricStore{failOn: "state_size"}
	h := newHarness(t, execsvc.WithMetricStore(store))
	h.register(t, &funcAgent{name: "ok", fn: func(context.Context) (any, error) { return "x", nil }})

	res := h.run("ok", 0)

	require.True(t, res.Success)
	assert.Contains(t, store.seen, "state_size")
	assert.Contains(t, store.seen, "execution_time_ms")
	assert.Contains(t, store.seen, "total_duration_seconds")
	assert.Contains(t, store.seen, "timeout_seconds")
	assert.NotContains(t, store.seen, "result_success")
	assert.NotContains(t, store.seen, "execution_status")

	numeric := 0
	for _, v := range res.Metrics {
		if _, ok := metric.Numeric(v); ok {
			numeric++
		}
	}
	assert.Len(t, store.seen, numeric)
}

func TestExecuteAgent_MetricPointsCarryRunIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMetricStore(ctrl)

	h := newHarness(t, execsvc.WithMetricStore(store))
	h.register(t, &funcAgent{name: "ok", fn: func(context.Context) (any, error) { return "x", nil }})

	var points []metric.Point
	store.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p metric.Point) error {
			points = append(points, p)
			return nil
		}).MinTimes(1)

	ec := domainexec.NewContext("ok", "")
	res := h.core.ExecuteAgent(context.Background(), ec, domainagent.NewState("u-metrics", "t1", ""), 0)
	require.True(t, res.Success)

	names := make([]string, 0, len(points))
	for _, p := range points {
		assert.Equal(t, ec.RunID, p.RunID)
		assert.Equal(t, "ok", p.AgentName)
		assert.Equal(t, "u-metrics", p.UserID)
		assert.NotEqual(t, uuid.Nil, p.ExecutionID)
		names = append(names, p.Name)
	}
	assert.IsIncreasing(t, names, "points are written in key order")
}

func TestExecuteAgent_MetricsContent(t *testing.T) {
	h := newHarness(t)
	h.register(t, &funcAgent{name: "ok", fn: func(context.Context) (any, error) {
		return domainexec.Result{Success: true, Metrics: map[string]any{"tokens": 42}}, nil
	}})

	res := h.run("ok", 0)

	require.True(t, res.Success)
	assert.Equal(t, 42, res.Metrics["tokens"])
	assert.Equal(t, true, res.Metrics["result_success"])
	assert.Equal(t, "completed", res.Metrics["execution_status"])
	assert.Contains(t, res.Metrics, "state_size")
	assert.Contains(t, res.Metrics, "memory_usage_mb")
	assert.NotContains(t, res.Metrics, "heartbeat_count")
	assert.InDelta(t, res.Duration.Seconds(), res.Metrics["total_duration_seconds"], 1e-9)
}

func TestExecuteAgent_MetricsReportTerminalStatus(t *testing.T) {
	h := newHarness(t)
	h.register(t, &funcAgent{name: "bad", fn: func(context.Context) (any, error) { return nil, errors.New("x") }})

	res := h.run("bad", 0)

	require.False(t, res.Success)
	assert.Equal(t, "failed", res.Metrics["execution_status"])
}

func TestExecuteAgent_FailedResultWithoutMessage(t *testing.T) {
	h := newHarness(t)
	h.register(t, &funcAgent{name: "meh", fn: func(context.Context) (any, error) {
		return &domainexec.Result{Success: false}, nil
	}})

	res := h.run("meh", 0)

	assert.False(t, res.Success)
	assert.Equal(t, "unknown error", res.Error)
	assert.Equal(t, "meh", res.AgentName)
}

// ── Instrumentation ───────────────────────────────────────────────────────────

func TestExecuteAgent_InstrumentedAgentEventOrder(t *testing.T) {
	h := newHarness(t)
	a := newChattyAgent("chatty")
	h.register(t, a)

	res := h.run("chatty", 0)

	require.True(t, res.Success)
	assert.Equal(t, []event.Type{
		event.TypeAgentStarted,
		event.TypeAgentThinking,
		event.TypeToolExecuting,
		event.TypeToolCompleted,
		event.TypeAgentCompleted,
	}, h.bridge.Types())
	assert.Equal(t, "user-1", a.userID)
	require.NotNil(t, a.traceCtx)
	assert.IsType(t, &execsvc.NotifyingDispatcher{}, a.dispatcher)

	tool := h.bridge.OfType(event.TypeToolCompleted)
	require.Len(t, tool, 1)
	assert.Equal(t, "lookup", tool[0].Tool)
	assert.Equal(t, res.AgentName, tool[0].Target.AgentName)
}

func TestExecuteAgent_HeartbeatWhenConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := mocks.NewMockHeartbeatFactory(ctrl)
	hb := mocks.NewMockHeartbeat(ctrl)

	factory.EXPECT().Start(gomock.Any(), gomock.Any()).Return(hb)
	hb.EXPECT().Pulse(gomock.Any()).Times(2)
	hb.EXPECT().Count().Return(2)
	hb.EXPECT().Stop()

	h := newHarness(t, execsvc.WithHeartbeat(factory))
	h.register(t, &funcAgent{name: "ok", fn: func(context.Context) (any, error) { return "x", nil }})

	res := h.run("ok", 0)

	require.True(t, res.Success)
	assert.Equal(t, 2, res.Metrics["heartbeat_count"])
}

// ── Tracing ───────────────────────────────────────────────────────────────────

func TestExecuteAgent_ChildOfAmbientTrace(t *testing.T) {
	h := newHarness(t)
	h.register(t, &funcAgent{name: "ok", fn: func(context.Context) (any, error) { return "x", nil }})

	parent := trace.New(nil, trace.Attrs{UserID: "user-1", CorrelationID: "corr-parent"})
	ctx, span := parent.StartSpan(context.Background(), "supervisor", nil)
	defer parent.FinishSpan(span)
	ctx = trace.WithContext(ctx, parent)

	h.core.ExecuteAgent(ctx, domainexec.NewContext("ok", ""), domainagent.NewState("user-1", "t", ""), 0)

	calls := h.bridge.Calls()
	require.Len(t, calls, 2)
	tc := calls[1].TraceContext
	assert.Equal(t, parent.TraceID, tc["trace_id"])
	assert.Equal(t, span.ID(), tc["parent_span_id"])
	assert.Equal(t, "corr-parent", tc["correlation_id"])
}

func TestExecuteAgent_RootTraceEventsOnAgent(t *testing.T) {
	h := newHarness(t)
	a := newChattyAgent("chatty")
	h.register(t, a)

	h.run("chatty", 0)

	require.NotNil(t, a.traceCtx)
	var names []string
	for _, e := range a.traceCtx.Events() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"agent.started", "agent.completed"}, names)
}
