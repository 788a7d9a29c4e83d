package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/alanyang/agent-exec/internal/config"
	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	"github.com/alanyang/agent-exec/internal/domain/event"
	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	execsvc "github.com/alanyang/agent-exec/internal/service/execution"
	"github.com/alanyang/agent-exec/internal/trace"
	"github.com/alanyang/agent-exec/internal/wire"
)

// errRunFailed makes the process exit non-zero after the result is printed.
var errRunFailed = errors.New("agent run failed")

func (c *RunCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if c.Events {
		for _, ch := range event.Channels() {
			sub, err := app.EventBus.Subscribe(ctx, ch, printEvent(g.Err, c.User))
			if err != nil {
				return fmt.Errorf("subscribe %s events: %w", ch, err)
			}
			defer sub.Unsubscribe()
		}
	}

	ec := domainexec.NewContext(c.Agent, "")
	state := domainagent.NewState(c.User, c.Thread, c.Request)
	state.RunID = ec.RunID.String()
	for k, v := range c.Context {
		state.Context[k] = parseValue(v)
	}

	result := app.Core.ExecuteAgent(ctx, ec, state, c.Timeout)
	if err := writeJSON(g.Out, execsvc.ResultPayload(result, ec.RunID)); err != nil {
		return err
	}
	if !result.Success {
		return errRunFailed
	}
	return nil
}

func (c *AgentsCmd) Run(g *Globals) error {
	ctx := context.Background()
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	for _, name := range app.AgentSvc.List(ctx) {
		fmt.Fprintln(g.Out, name)
	}
	return nil
}

func buildApp(ctx context.Context) (*wire.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	rt, err := trace.Setup(ctx, trace.Options{ServiceName: "agentexec-cli", Enabled: cfg.TraceEnabled, Endpoint: cfg.TraceEndpoint})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	return wire.Build(ctx, cfg, rt)
}

func printEvent(w io.Writer, userID string) func(context.Context, event.Event) {
	return func(_ context.Context, e event.Event) {
		if e.UserID != userID {
			return
		}
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintln(w, string(data))
	}
}

// parseValue lets -c delay_ms=200 and -c upper=true arrive as JSON types.
func parseValue(v string) any {
	var out any
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return v
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

