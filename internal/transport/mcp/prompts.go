package mcp

import (
	"context"
	"fmt"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	portregistry "github.com/alanyang/agent-exec/internal/port/registry"
)

// RegisterPrompts registers one prompt per agent known at startup. Each prompt
// tells the client how to invoke that agent through execute_agent.
// [SRP] Prompt registration only, separate from server lifecycle and tool definitions.
func RegisterPrompts(ctx context.Context, s *mcpserver.MCPServer, agents portregistry.Registry) {
	for _, name := range agents.List(ctx) {
		s.AddPrompt(
			mcpmcp.NewPrompt("run_"+name,
				mcpmcp.WithPromptDescription(fmt.Sprintf("Instructions for running the %s agent.", name)),
				mcpmcp.WithArgument("user_request",
					mcpmcp.ArgumentDescription("What the agent should do."),
					mcpmcp.RequiredArgument(),
				),
			),
			promptHandler(name),
		)
	}
}

func promptHandler(agentName string) mcpserver.PromptHandlerFunc {
	return func(_ context.Context, req mcpmcp.GetPromptRequest) (*mcpmcp.GetPromptResult, error) {
		userRequest := req.Params.Arguments["user_request"]
		if userRequest == "" {
			return nil, fmt.Errorf("user_request is required")
		}

		text := fmt.Sprintf(
			"Call the execute_agent tool with agent_name %q and user_request %q. "+
				"Progress arrives as notifications; the tool result carries success, error and output.",
			agentName, userRequest,
		)

		return mcpmcp.NewGetPromptResult(
			fmt.Sprintf("Run the %s agent", agentName),
			[]mcpmcp.PromptMessage{
				mcpmcp.NewPromptMessage(
					mcpmcp.RoleUser,
					mcpmcp.TextContent{
						Type: "text",
						Text: text,
					},
				),
			},
		), nil
	}
}
