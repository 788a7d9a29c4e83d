package transport

import (
	"context"

	"github.com/gin-gonic/gin"

	porteventbus "github.com/alanyang/agent-exec/internal/port/eventbus"
	portidem "github.com/alanyang/agent-exec/internal/port/idempotency"
	agentsvc "github.com/alanyang/agent-exec/internal/service/agent"
	execsvc "github.com/alanyang/agent-exec/internal/service/execution"
	trackersvc "github.com/alanyang/agent-exec/internal/service/tracker"

	agenthandler "github.com/alanyang/agent-exec/internal/transport/agent"
	exechandler "github.com/alanyang/agent-exec/internal/transport/execution"
	mcptransport "github.com/alanyang/agent-exec/internal/transport/mcp"
	wshandler "github.com/alanyang/agent-exec/internal/transport/ws"
)

func NewRouter(
	ctx context.Context,
	core *execsvc.Core,
	tracker *trackersvc.Service,
	agentSvc *agentsvc.Service,
	idem portidem.Store,
	mcpServer *mcptransport.Server,
	eventBus porteventbus.EventBus,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	api := r.Group("/api")

	exechandler.Register(api.Group("/executions"), core, tracker, idem)
	agenthandler.Register(api.Group("/agents"), agentSvc)

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	// One subscription per channel. The hub filters by user; MCP sessions
	// follow the user they subscribed through execute_agent.
	hub.Subscribe(ctx, eventBus)
	if mcpServer != nil {
		mcpServer.Registry().Subscribe(ctx, eventBus)
		r.Any("/mcp", gin.WrapH(mcpServer.Handler()))
	}

	return r
}
