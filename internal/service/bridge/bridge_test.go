package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/agent-exec/internal/adapter/memory"
	"github.com/alanyang/agent-exec/internal/domain/event"
	"github.com/alanyang/agent-exec/internal/mocks"
	portnotifier "github.com/alanyang/agent-exec/internal/port/notifier"
	bridgesvc "github.com/alanyang/agent-exec/internal/service/bridge"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func collect(t *testing.T, bus *memory.EventBus) *[]event.Event {
	t.Helper()
	var got []event.Event
	for _, ch := range event.Channels() {
		sub, err := bus.Subscribe(context.Background(), ch, func(_ context.Context, e event.Event) {
			got = append(got, e)
		})
		require.NoError(t, err)
		t.Cleanup(sub.Unsubscribe)
	}
	return &got
}

func target() portnotifier.Target {
	return portnotifier.Target{RunID: uuid.New(), AgentName: "echo", UserID: "user-1", ThreadID: "thread-1"}
}

// ── Publishing ────────────────────────────────────────────────────────────────

func TestBridge_PublishesLifecycle(t *testing.T) {
	bus := memory.NewEventBus()
	got := collect(t, bus)
	svc := bridgesvc.NewService(bus)
	tg := target()
	ctx := context.Background()
	traceCtx := map[string]any{"trace_id": "abc", "span_id": "def"}

	require.NoError(t, svc.NotifyAgentStarted(ctx, tg, traceCtx))
	require.NoError(t, svc.NotifyAgentThinking(ctx, tg, "planning", 1))
	require.NoError(t, svc.NotifyToolExecuting(ctx, tg, "search", map[string]any{"q": "go"}))
	require.NoError(t, svc.NotifyToolCompleted(ctx, tg, "search", "found", 15*time.Millisecond))
	require.NoError(t, svc.NotifyAgentCompleted(ctx, tg, map[string]any{"success": true}, 2*time.Second, traceCtx))

	require.Len(t, *got, 5)
	types := make([]event.Type, 0, 5)
	for _, e := range *got {
		types = append(types, e.Type)
		assert.Equal(t, tg.RunID, e.RunID)
		assert.Equal(t, "user-1", e.UserID)
		assert.Equal(t, "thread-1", e.ThreadID)
	}
	assert.Equal(t, []event.Type{
		event.TypeAgentStarted, event.TypeAgentThinking, event.TypeToolExecuting,
		event.TypeToolCompleted, event.TypeAgentCompleted,
	}, types)

	assert.Equal(t, traceCtx, (*got)[0].TraceContext)
	assert.Equal(t, "planning", (*got)[1].Payload["reasoning"])
	assert.Equal(t, 1, (*got)[1].Payload["step_number"])
	assert.Equal(t, "search", (*got)[2].Payload["tool_name"])
	assert.Equal(t, 15.0, (*got)[3].Payload["execution_time_ms"])
	assert.Equal(t, 2000.0, (*got)[4].Payload["execution_time_ms"])
}

func TestBridge_ErrorEvent(t *testing.T) {
	bus := memory.NewEventBus()
	got := collect(t, bus)
	svc := bridgesvc.NewService(bus)

	require.NoError(t, svc.NotifyAgentError(context.Background(), target(), "boom", nil))

	require.Len(t, *got, 1)
	assert.Equal(t, event.TypeAgentError, (*got)[0].Type)
	assert.Equal(t, "boom", (*got)[0].Payload["error"])
	assert.Nil(t, (*got)[0].TraceContext)
}

func TestBridge_PublishFailureIsWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockEventBus(ctrl)
	busErr := errors.New("nats down")
	bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(busErr)

	err := bridgesvc.NewService(bus).NotifyAgentStarted(context.Background(), target(), nil)

	assert.ErrorIs(t, err, busErr)
	assert.Contains(t, err.Error(), "publish agent_started")
}
