// Package main defines the agentexec CLI using kong.
package main

import (
	"io"
	"time"
)

// CLI defines the command-line interface.
type CLI struct {
	Run    RunCmd    `cmd:"" help:"Run one agent in-process and print the result"`
	Remote RemoteCmd `cmd:"" help:"Run one agent on a running server"`
	Agents AgentsCmd `cmd:"" help:"List the agents registered in-process"`
}

// Globals are bound into every command's Run method.
type Globals struct {
	Out io.Writer
	Err io.Writer
}

// RunCmd executes an agent through the in-process execution core.
type RunCmd struct {
	Agent   string            `short:"a" required:"" help:"Agent name"`
	User    string            `short:"u" default:"cli" help:"User id the run belongs to"`
	Thread  string            `short:"t" help:"Thread id"`
	Request string            `short:"r" help:"User request handed to the agent"`
	Context map[string]string `short:"c" help:"State context key=value (repeatable)"`
	Timeout time.Duration     `default:"0s" help:"Per-run timeout; 0 uses DEFAULT_TIMEOUT"`
	Events  bool              `help:"Print run events to stderr as they arrive"`
}

// RemoteCmd posts an execution request to a running server.
type RemoteCmd struct {
	Server         string            `default:"http://localhost:8080" env:"AGENTEXEC_SERVER" help:"Server base URL"`
	Agent          string            `short:"a" required:"" help:"Agent name"`
	User           string            `short:"u" default:"cli" help:"User id the run belongs to"`
	Thread         string            `short:"t" help:"Thread id"`
	Request        string            `short:"r" help:"User request handed to the agent"`
	Context        map[string]string `short:"c" help:"State context key=value (repeatable)"`
	Timeout        time.Duration     `default:"0s" help:"Per-run timeout; 0 uses the server default"`
	IdempotencyKey string            `name:"idempotency-key" help:"Replay-safe request key"`
}

// AgentsCmd lists registered agent names.
type AgentsCmd struct{}
