// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "credvault",
		Usage:   "Multi-tenant credential vault",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "actor",
				Value:   "cli",
				Sources: cli.EnvVars("CREDVAULT_ACTOR"),
				Usage:   "Operator identity recorded as the actor of every audit entry",
			},
		},
		Commands: getCommands(version),
	}
}

func main() {
	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
