package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	portagent "github.com/alanyang/agent-exec/internal/port/agent"
	portregistry "github.com/alanyang/agent-exec/internal/port/registry"
	agentsvc "github.com/alanyang/agent-exec/internal/service/agent"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type namedAgent struct{ name string }

func (a *namedAgent) Name() string { return a.name }
func (a *namedAgent) Execute(context.Context, *domainagent.State, uuid.UUID, bool) (any, error) {
	return "ok", nil
}

func factoryFor(name string) agentsvc.Factory {
	return func() portagent.Agent { return &namedAgent{name: name} }
}

// ── Register ──────────────────────────────────────────────────────────────────

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		agent    string
		factory  agentsvc.Factory
		preload  []string
		wantErr  error
		wantText string
	}{
		{name: "new agent", agent: "echo", factory: factoryFor("echo")},
		{name: "duplicate", agent: "echo", factory: factoryFor("echo"), preload: []string{"echo"}, wantErr: agentsvc.ErrDuplicate},
		{name: "empty name", agent: "", factory: factoryFor(""), wantText: "name is required"},
		{name: "nil factory", agent: "echo", factory: nil, wantText: "factory is nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := agentsvc.NewService()
			for _, n := range tt.preload {
				require.NoError(t, svc.Register(n, factoryFor(n)))
			}

			err := svc.Register(tt.agent, tt.factory)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantText)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

// ── Get ───────────────────────────────────────────────────────────────────────

func TestGet_ReturnsFreshInstance(t *testing.T) {
	svc := agentsvc.NewService()
	require.NoError(t, svc.Register("echo", factoryFor("echo")))

	a1, err := svc.Get(context.Background(), "echo")
	require.NoError(t, err)
	a2, err := svc.Get(context.Background(), "echo")
	require.NoError(t, err)

	assert.Equal(t, "echo", a1.Name())
	assert.NotSame(t, a1, a2)
}

func TestGet_Unknown(t *testing.T) {
	svc := agentsvc.NewService()

	a, err := svc.Get(context.Background(), "missing")
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, portregistry.ErrNotFound))
}

func TestGet_NilFromFactory(t *testing.T) {
	svc := agentsvc.NewService()
	require.NoError(t, svc.Register("broken", func() portagent.Agent { return nil }))

	_, err := svc.Get(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, errors.Is(err, portregistry.ErrNotFound))
}

// ── List ──────────────────────────────────────────────────────────────────────

func TestList_Sorted(t *testing.T) {
	svc := agentsvc.NewService()
	for _, n := range []string{"writer", "echo", "planner"} {
		require.NoError(t, svc.Register(n, factoryFor(n)))
	}

	assert.Equal(t, []string{"echo", "planner", "writer"}, svc.List(context.Background()))
}
