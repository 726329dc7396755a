package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credvault/cmd/app/commands"
	"github.com/allisson/credvault/internal/app"
)

func getBackupCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-backup",
			Usage: "Write an encrypted backup of the matching credentials to the backup bucket",
			Flags: append(credentialQueryFlags(),
				&cli.StringFlag{
					Name:  "created-by",
					Usage: "Operator recorded in the backup metadata (defaults to --actor)",
				},
				formatFlag(),
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					backups, err := container.BackupUseCase()
					if err != nil {
						return err
					}

					createdBy := cmd.String("created-by")
					if createdBy == "" {
						createdBy = cmd.String("actor")
					}

					return commands.RunCreateBackup(
						ctx,
						backups,
						container.Logger(),
						commands.DefaultIO().Writer,
						createdBy,
						credentialQuery(cmd),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "list-backups",
			Usage: "List stored backups",
			Flags: []cli.Flag{
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					backups, err := container.BackupUseCase()
					if err != nil {
						return err
					}

					return commands.RunListBackups(ctx, backups, commands.DefaultIO().Writer, cmd.String("format"))
				})
			},
		},
		{
			Name:  "restore-backup",
			Usage: "Verify a backup and restore its credentials",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Backup ID",
				},
				&cli.BoolFlag{
					Name:  "overwrite",
					Usage: "Replace credentials that already exist",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					backups, err := container.BackupUseCase()
					if err != nil {
						return err
					}

					return commands.RunRestoreBackup(
						ctx,
						backups,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("id"),
						cmd.Bool("overwrite"),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
