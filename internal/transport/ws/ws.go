package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/alanyang/agent-exec/internal/domain/event"
	porteventbus "github.com/alanyang/agent-exec/internal/port/eventbus"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one socket. gorilla allows a single concurrent writer per
// connection, so writes go through mu.
type client struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub forwards run events to the sockets of the user who owns the run.
type Hub struct {
	clients map[*client]struct{}
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

// Subscribe feeds the hub from every event channel on the bus.
func (h *Hub) Subscribe(ctx context.Context, bus porteventbus.EventBus) []porteventbus.Subscription {
	var subs []porteventbus.Subscription
	for _, ch := range event.Channels() {
		sub, err := bus.Subscribe(ctx, ch, func(_ context.Context, e event.Event) { h.Broadcast(e) })
		if err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", ch, "error", err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs
}

func (h *Hub) handleWS(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{conn: conn, userID: userID}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast sends e to every socket opened by e.UserID. Events without a user
// are dropped: a run's events are never visible to other users.
func (h *Hub) Broadcast(e event.Event) {
	if e.UserID == "" {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("websocket broadcast marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0)
	for cl := range h.clients {
		if cl.userID == e.UserID {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		if err := cl.write(data); err != nil {
			slog.Warn("websocket write failed", "user_id", cl.userID, "run_id", e.RunID, "error", err)
		}
	}
}

// Connected returns how many sockets the user has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for cl := range h.clients {
		if cl.userID == userID {
			n++
		}
	}
	return n
}
