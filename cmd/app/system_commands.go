package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credvault/cmd/app/commands"
	"github.com/allisson/credvault/internal/app"
	"github.com/allisson/credvault/internal/config"
)

func auditFilterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "start-date",
			Aliases: []string{"s"},
			Usage:   "Start date in YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339 format",
		},
		&cli.StringFlag{
			Name:    "end-date",
			Aliases: []string{"e"},
			Usage:   "End date in YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339 format",
		},
		&cli.StringFlag{
			Name:  "credential-id",
			Usage: "Only entries for this credential",
		},
		&cli.StringFlag{
			Name:  "actor-user-id",
			Usage: "Only entries recorded for this actor",
		},
		&cli.StringFlag{
			Name:  "target-user-id",
			Usage: "Only entries targeting this user",
		},
		&cli.StringFlag{
			Name:  "action",
			Usage: "Only entries with this action (e.g. credential_accessed)",
		},
		&cli.StringFlag{
			Name:  "success",
			Usage: "Only successful ('true') or failed ('false') operations",
		},
		&cli.IntFlag{
			Name:  "limit",
			Value: 100,
			Usage: "Maximum number of entries",
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Number of entries to skip",
		},
		formatFlag(),
	}
}

func auditQueryParams(cmd *cli.Command) commands.AuditQueryParams {
	return commands.AuditQueryParams{
		CredentialID: cmd.String("credential-id"),
		ActorUserID:  cmd.String("actor-user-id"),
		TargetUserID: cmd.String("target-user-id"),
		Action:       cmd.String("action"),
		Success:      cmd.String("success"),
		StartDate:    cmd.String("start-date"),
		EndDate:      cmd.String("end-date"),
		Limit:        int(cmd.Int("limit")),
		Offset:       int(cmd.Int("offset")),
	}
}

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "query-audit-logs",
			Usage: "List audit log entries, newest first",
			Flags: auditFilterFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					auditLogUseCase, err := container.AuditLogUseCase()
					if err != nil {
						return err
					}

					return commands.RunQueryAuditLogs(
						ctx,
						auditLogUseCase,
						commands.DefaultIO().Writer,
						auditQueryParams(cmd),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "verify-audit-logs",
			Usage: "Verify cryptographic integrity of audit logs",
			Flags: auditFilterFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					auditLogUseCase, err := container.AuditLogUseCase()
					if err != nil {
						return err
					}

					return commands.RunVerifyAuditLogs(
						ctx,
						auditLogUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						auditQueryParams(cmd),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
