package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	portregistry "github.com/alanyang/agent-exec/internal/port/registry"
	execsvc "github.com/alanyang/agent-exec/internal/service/execution"
	trackersvc "github.com/alanyang/agent-exec/internal/service/tracker"
)

// RegisterTools registers all MCP tools on the server.
// [SRP] Tool registration only.
// [OCP] Add a new tool by adding a new AddTool call; server.go never changes.
func RegisterTools(
	s *mcpserver.MCPServer,
	reg *SessionRegistry,
	core *execsvc.Core,
	tracker *trackersvc.Service,
	agents portregistry.Registry,
) {
	s.AddTool(mcpmcp.NewTool("execute_agent",
		mcpmcp.WithDescription("Run a registered agent to completion and return its result. The calling session receives agent_started, agent_thinking, tool_executing, tool_completed and the terminal event as notifications while the run is in flight."),
		mcpmcp.WithString("agent_name", mcpmcp.Required(), mcpmcp.Description("Registered agent name (see list_agents)")),
		mcpmcp.WithString("user_id", mcpmcp.Required(), mcpmcp.Description("User the run belongs to; events are routed to this user only")),
		mcpmcp.WithString("thread_id", mcpmcp.Description("Conversation thread")),
		mcpmcp.WithString("user_request", mcpmcp.Description("Free-text request handed to the agent")),
		mcpmcp.WithString("correlation_id", mcpmcp.Description("Caller-supplied correlation id")),
		mcpmcp.WithNumber("timeout_seconds", mcpmcp.Description("Per-run timeout. 0 or omitted uses the server default.")),
	), executeAgentHandler(reg, core))

	s.AddTool(mcpmcp.NewTool("get_execution",
		mcpmcp.WithDescription("Return the tracker record of a run: status, timestamps, error and collected metrics."),
		mcpmcp.WithString("run_id", mcpmcp.Required(), mcpmcp.Description("Run UUID returned by execute_agent")),
	), getExecutionHandler(tracker))

	s.AddTool(mcpmcp.NewTool("list_agents",
		mcpmcp.WithDescription("List the names of every registered agent."),
	), listAgentsHandler(agents))
}

// ── Tool handlers ─────────────────────────────────────────────────────────

func executeAgentHandler(reg *SessionRegistry, core *execsvc.Core) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		agentName := mcpmcp.ParseString(req, "agent_name", "")
		userID := mcpmcp.ParseString(req, "user_id", "")
		threadID := mcpmcp.ParseString(req, "thread_id", "")
		userRequest := mcpmcp.ParseString(req, "user_request", "")
		correlationID := mcpmcp.ParseString(req, "correlation_id", "")
		timeoutSeconds := mcpmcp.ParseFloat64(req, "timeout_seconds", 0)

		if agentName == "" {
			return mcpmcp.NewToolResultText("error: agent_name required"), nil
		}
		if userID == "" {
			return mcpmcp.NewToolResultText("error: user_id required"), nil
		}
		if timeoutSeconds < 0 {
			return mcpmcp.NewToolResultText("error: timeout_seconds must be >= 0"), nil
		}

		// Subscribe before running so the caller sees agent_started.
		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			reg.Register(session.SessionID(), userID)
		}

		ec := domainexec.NewContext(agentName, correlationID)
		state := domainagent.NewState(userID, threadID, userRequest)
		state.RunID = ec.RunID.String()

		timeout := time.Duration(timeoutSeconds * float64(time.Second))
		result := core.ExecuteAgent(ctx, ec, state, timeout)

		data, err := json.Marshal(execsvc.ResultPayload(result, ec.RunID))
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func getExecutionHandler(tracker *trackersvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		runID, err := uuid.Parse(mcpmcp.ParseString(req, "run_id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid run_id"), nil
		}

		rec, err := tracker.GetByID(ctx, runID)
		if err != nil {
			if errors.Is(err, trackersvc.ErrNotFound) {
				return mcpmcp.NewToolResultText("null"), nil
			}
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}

		data, _ := json.Marshal(rec)
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func listAgentsHandler(agents portregistry.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		names := agents.List(ctx)
		if names == nil {
			names = []string{}
		}
		data, _ := json.Marshal(names)
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}
