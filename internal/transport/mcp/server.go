package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	portregistry "github.com/alanyang/agent-exec/internal/port/registry"
	execsvc "github.com/alanyang/agent-exec/internal/service/execution"
	trackersvc "github.com/alanyang/agent-exec/internal/service/tracker"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// [SRP] HTTP/SSE server lifecycle only (start, stop, session open/close).
//
//	Tools are registered in tools.go, prompts in prompts.go, session state in registry.go.
//
// [OCP] Adding new tools or prompts never requires changes to this file.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
	reg     *SessionRegistry
}

// New creates the MCP transport server. Prompts are built from the agents
// registered at this point.
func New(
	ctx context.Context,
	reg *SessionRegistry,
	core *execsvc.Core,
	tracker *trackersvc.Service,
	agents portregistry.Registry,
) *Server {
	s := &Server{reg: reg}

	hooks := &mcpserver.Hooks{}
	hooks.OnUnregisterSession = append(hooks.OnUnregisterSession, s.onSessionClose)

	mcpSrv := mcpserver.NewMCPServer(
		"agent-exec",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithHooks(hooks),
	)

	reg.SetMCPServer(mcpSrv)

	RegisterTools(mcpSrv, reg, core, tracker, agents)
	RegisterPrompts(ctx, mcpSrv, agents)

	s.httpSrv = mcpserver.NewStreamableHTTPServer(mcpSrv)
	return s
}

// Handler returns an http.Handler that serves the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

func (s *Server) Registry() *SessionRegistry {
	return s.reg
}

func (s *Server) onSessionClose(ctx context.Context, session mcpserver.ClientSession) {
	userID, ok := s.reg.Unregister(session.SessionID())
	if !ok {
		return
	}
	slog.InfoContext(ctx, "mcp: session closed", "session_id", session.SessionID(), "user_id", userID)
}
