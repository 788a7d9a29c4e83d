package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/alanyang/agent-exec/internal/domain/event"
	porteventbus "github.com/alanyang/agent-exec/internal/port/eventbus"
)

// sender is the slice of *mcpserver.MCPServer the registry needs.
type sender interface {
	SendNotificationToSpecificClient(sessionID, method string, params map[string]any) error
}

// SessionRegistry maps MCP sessions to the user whose run events they receive.
//
// [SRP] Session storage and notification dispatch only.
// [DIP] Events arrive through the EventBus port, never from the core directly.
type SessionRegistry struct {
	mu        sync.RWMutex
	bySession map[string]string // sessionID → userID

	// srv is set after the MCP server is constructed (avoids circular init dependency).
	srvMu sync.RWMutex
	srv   sender
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		bySession: make(map[string]string),
	}
}

// SetMCPServer injects the mcp-go server after construction.
func (r *SessionRegistry) SetMCPServer(s *mcpserver.MCPServer) {
	r.setSender(s)
}

func (r *SessionRegistry) setSender(s sender) {
	r.srvMu.Lock()
	r.srv = s
	r.srvMu.Unlock()
}

// Register subscribes a session to the run events of userID. A session follows
// one user at a time; registering again switches it.
func (r *SessionRegistry) Register(sessionID, userID string) {
	r.mu.Lock()
	r.bySession[sessionID] = userID
	r.mu.Unlock()
}

// Unregister drops a session when it closes. Returns the user it followed.
func (r *SessionRegistry) Unregister(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.bySession[sessionID]
	if ok {
		delete(r.bySession, sessionID)
	}
	return userID, ok
}

func (r *SessionRegistry) IsSubscribed(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySession[sessionID]
	return ok
}

// Subscribe feeds the registry from every event channel on the bus.
func (r *SessionRegistry) Subscribe(ctx context.Context, bus porteventbus.EventBus) []porteventbus.Subscription {
	var subs []porteventbus.Subscription
	for _, ch := range event.Channels() {
		sub, err := bus.Subscribe(ctx, ch, func(ctx context.Context, e event.Event) {
			if err := r.Deliver(ctx, e); err != nil {
				slog.WarnContext(ctx, "mcp: event delivery failed", "type", e.Type, "run_id", e.RunID, "error", err)
			}
		})
		if err != nil {
			slog.Error("mcp: failed to subscribe channel", "channel", ch, "error", err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs
}

// Deliver pushes e to every session following e.UserID. No sessions is a no-op.
func (r *SessionRegistry) Deliver(_ context.Context, e event.Event) error {
	if e.UserID == "" {
		return nil
	}

	r.mu.RLock()
	targets := make([]string, 0)
	for sessionID, userID := range r.bySession {
		if userID == e.UserID {
			targets = append(targets, sessionID)
		}
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return nil
	}

	r.srvMu.RLock()
	srv := r.srv
	r.srvMu.RUnlock()

	if srv == nil {
		return fmt.Errorf("mcp server not initialized")
	}

	params, err := toParams(e)
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}

	var lastErr error
	for _, sessionID := range targets {
		if err := srv.SendNotificationToSpecificClient(sessionID, "notifications/message", params); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func toParams(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return map[string]any{"data": v}, nil
	}
	return params, nil
}
