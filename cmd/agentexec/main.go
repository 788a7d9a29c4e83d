// Package main is the entry point for the agentexec CLI.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agentexec"),
		kong.Description("Run agents through the execution core."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&Globals{Out: os.Stdout, Err: os.Stderr})
	ctx.FatalIfErrorf(err)
}
