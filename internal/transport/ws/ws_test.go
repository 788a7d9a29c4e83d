package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/agent-exec/internal/adapter/memory"
	"github.com/alanyang/agent-exec/internal/domain/event"
	"github.com/alanyang/agent-exec/internal/mocks"
	"github.com/alanyang/agent-exec/internal/transport/ws"
)

func init() { gin.SetMode(gin.TestMode) }

func startHub(t *testing.T) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub()
	r := gin.New()
	hub.Register(r.Group("/ws"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitConnected(t *testing.T, hub *ws.Hub, userID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Connected(userID) == n }, time.Second, 5*time.Millisecond)
}

func TestHub_RequiresUser(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_DeliversOnlyToOwner(t *testing.T) {
	hub, srv := startHub(t)
	bus := memory.NewEventBus()
	for _, sub := range hub.Subscribe(context.Background(), bus) {
		t.Cleanup(sub.Unsubscribe)
	}

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	waitConnected(t, hub, "alice", 1)
	waitConnected(t, hub, "bob", 1)

	runID := uuid.New()
	require.NoError(t, bus.Publish(context.Background(), event.New(event.TypeAgentStarted, runID, "echo", "alice", "t1")))
	require.NoError(t, bus.Publish(context.Background(), event.New(event.TypeToolExecuting, runID, "echo", "alice", "t1")))

	for _, want := range []event.Type{event.TypeAgentStarted, event.TypeToolExecuting} {
		_ = alice.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := alice.ReadMessage()
		require.NoError(t, err)
		var got event.Event
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, want, got.Type)
		assert.Equal(t, runID, got.RunID)
	}

	_ = bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "bob must not see alice's events")
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "carol")
	waitConnected(t, hub, "carol", 1)

	conn.Close()
	waitConnected(t, hub, "carol", 0)
}

func TestHub_Subscribe(t *testing.T) {
	t.Run("returns the live subscription", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		bus := mocks.NewMockEventBus(ctrl)
		sub := mocks.NewMockSubscription(ctrl)
		bus.EXPECT().Subscribe(gomock.Any(), event.ChannelRun, gomock.Any()).Return(sub, nil)

		subs := ws.NewHub().Subscribe(context.Background(), bus)
		require.Len(t, subs, 1)

		sub.EXPECT().Unsubscribe()
		subs[0].Unsubscribe()
	})

	t.Run("skips a failed channel", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		bus := mocks.NewMockEventBus(ctrl)
		bus.EXPECT().Subscribe(gomock.Any(), event.ChannelRun, gomock.Any()).Return(nil, errors.New("listen failed"))

		assert.Empty(t, ws.NewHub().Subscribe(context.Background(), bus))
	})
}

func TestHub_BroadcastWithoutUserIsDropped(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "dave")
	waitConnected(t, hub, "dave", 1)

	hub.Broadcast(event.New(event.TypeAgentStarted, uuid.New(), "echo", "", ""))

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
