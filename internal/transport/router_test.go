package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/agent-exec/internal/adapter/memory"
	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	portagent "github.com/alanyang/agent-exec/internal/port/agent"
	agentsvc "github.com/alanyang/agent-exec/internal/service/agent"
	bridgesvc "github.com/alanyang/agent-exec/internal/service/bridge"
	execsvc "github.com/alanyang/agent-exec/internal/service/execution"
	trackersvc "github.com/alanyang/agent-exec/internal/service/tracker"
	"github.com/alanyang/agent-exec/internal/transport"
)

type okAgent struct{}

func (okAgent) Name() string { return "ok" }
func (okAgent) Execute(context.Context, *domainagent.State, uuid.UUID, bool) (any, error) {
	return map[string]any{"done": true}, nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	agents := agentsvc.NewService()
	require.NoError(t, agents.Register("ok", func() portagent.Agent { return okAgent{} }))

	bus := memory.NewEventBus()
	tracker := trackersvc.NewService(memory.NewExecutionRepository(time.Hour))
	core := execsvc.NewCore(tracker, agents, bridgesvc.NewService(bus))

	return transport.NewRouter(context.Background(), core, tracker, agents, memory.NewCache(time.Minute), nil, bus)
}

func TestRouter_Routes(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"list agents", http.MethodGet, "/api/agents", "", http.StatusOK},
		{"list executions", http.MethodGet, "/api/executions", "", http.StatusOK},
		{"execute", http.MethodPost, "/api/executions", `{"agent_name":"ok","user_id":"u1"}`, http.StatusOK},
		{"ws without user", http.MethodGet, "/api/ws", "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/tasks", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRouter_ExecuteThenGet(t *testing.T) {
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/executions", strings.NewReader(`{"agent_name":"ok","user_id":"u1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/executions?user_id=u1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var recs []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "completed", recs[0]["status"])
	assert.Equal(t, "ok", recs[0]["agent_name"])
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/executions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}
