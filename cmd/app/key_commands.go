package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credvault/cmd/app/commands"
	"github.com/allisson/credvault/internal/app"
	"github.com/allisson/credvault/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key, optionally wrapped under a passphrase",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "passphrase",
					Aliases: []string{"p"},
					Sources: cli.EnvVars("MASTER_KEY_PASSPHRASE"),
					Usage:   "Wrap the key under a key derived from this passphrase",
				},
				&cli.IntFlag{
					Name:    "iterations",
					Aliases: []string{"i"},
					Usage:   "PBKDF2 iterations for the passphrase (defaults to MASTER_KEY_PBKDF2_ITERATIONS)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				engine, err := container.EncryptionService()
				if err != nil {
					return err
				}

				kdf, err := container.KeyDerivation()
				if err != nil {
					return err
				}

				iterations := int(cmd.Int("iterations"))
				if iterations <= 0 {
					iterations = cfg.MasterKeyIterations
				}

				return commands.RunCreateMasterKey(
					engine,
					kdf,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("passphrase"),
					iterations,
				)
			},
		},
	}
}
