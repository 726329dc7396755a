package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credvault/internal/app"
	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	"github.com/allisson/credvault/internal/config"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getCredentialCommands(version)...)
	cmds = append(cmds, getBackupCommands(version)...)
	return cmds
}

// formatFlag is the --format flag shared by every command with output.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// withContainer loads the configuration, builds the container and runs fn with a context
// carrying the CLI request info for the audit trail. The container is shut down afterwards,
// which destroys the master key and flushes the metrics textfile.
func withContainer(
	ctx context.Context,
	cmd *cli.Command,
	version string,
	fn func(ctx context.Context, container *app.Container) error,
) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer func() {
		if err := container.Shutdown(context.WithoutCancel(ctx)); err != nil {
			container.Logger().Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	ctx = auditDomain.WithRequestInfo(ctx, auditDomain.RequestInfo{
		ActorUserID: cmd.String("actor"),
		UserAgent:   "credvault-cli/" + version,
	})
	return fn(ctx, container)
}
