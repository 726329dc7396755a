package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credvault/cmd/app/commands"
	"github.com/allisson/credvault/internal/app"
	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
)

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user-id",
		Aliases:  []string{"u"},
		Required: true,
		Usage:    "Owner of the credential",
	}
}

func credentialIDFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "Credential ID",
	}
}

// credentialQuery builds a listing filter from the list/backup flags.
func credentialQuery(cmd *cli.Command) credentialDomain.Query {
	query := credentialDomain.Query{
		UserID:         cmd.String("user-id"),
		VendorID:       cmd.String("vendor-id"),
		Type:           credentialDomain.Type(cmd.String("type")),
		ExcludeExpired: cmd.Bool("exclude-expired"),
		Limit:          int(cmd.Int("limit")),
		Offset:         int(cmd.Int("offset")),
	}
	if cmd.IsSet("active") {
		active := cmd.Bool("active")
		query.IsActive = &active
	}
	return query
}

func credentialQueryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "user-id",
			Aliases: []string{"u"},
			Usage:   "Only credentials owned by this user",
		},
		&cli.StringFlag{
			Name:  "vendor-id",
			Usage: "Only credentials for this vendor",
		},
		&cli.StringFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Usage:   "Only credentials of this type (api_key, oauth_token, secret, certificate)",
		},
		&cli.BoolFlag{
			Name:  "active",
			Usage: "Only active (true) or inactive (false) credentials",
		},
		&cli.BoolFlag{
			Name:  "exclude-expired",
			Usage: "Skip credentials past their expiry",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of credentials (0 for no limit)",
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Number of credentials to skip",
		},
	}
}

func getCredentialCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-credential",
			Usage: "Encrypt and store a new credential",
			Flags: []cli.Flag{
				userFlag(),
				&cli.StringFlag{
					Name:  "id",
					Usage: "Credential ID (generated when omitted)",
				},
				&cli.StringFlag{
					Name:     "vendor-id",
					Required: true,
					Usage:    "Vendor the credential belongs to",
				},
				&cli.StringFlag{
					Name:     "type",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Credential type: api_key, oauth_token, secret or certificate",
				},
				&cli.StringFlag{
					Name:     "data",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    `Credential payload as JSON, e.g. '{"apiKey":"..."}'`,
				},
				&cli.StringFlag{
					Name:  "label",
					Usage: "Human-readable label",
				},
				&cli.StringFlag{
					Name:  "expires-at",
					Usage: "Expiry in YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339 format",
				},
				&cli.StringFlag{
					Name:  "custom",
					Usage: "Non-secret custom metadata as a JSON object",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					return commands.RunCreateCredential(
						ctx,
						vault,
						container.Logger(),
						commands.DefaultIO().Writer,
						commands.CreateCredentialParams{
							ID:        cmd.String("id"),
							UserID:    cmd.String("user-id"),
							VendorID:  cmd.String("vendor-id"),
							Type:      cmd.String("type"),
							Data:      cmd.String("data"),
							Label:     cmd.String("label"),
							ExpiresAt: cmd.String("expires-at"),
							Custom:    cmd.String("custom"),
						},
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "get-credential",
			Usage: "Decrypt and print a credential",
			Flags: []cli.Flag{
				userFlag(),
				credentialIDFlag(),
				&cli.BoolFlag{
					Name:  "exclude-expired",
					Usage: "Fail when the credential is past its expiry",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					return commands.RunGetCredential(
						ctx,
						vault,
						commands.DefaultIO().Writer,
						cmd.String("user-id"),
						cmd.String("id"),
						cmd.Bool("exclude-expired"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "list-credentials",
			Usage: "List credential metadata",
			Flags: append(credentialQueryFlags(), formatFlag()),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					return commands.RunListCredentials(
						ctx,
						vault,
						commands.DefaultIO().Writer,
						credentialQuery(cmd),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "update-credential",
			Usage: "Update credential data or metadata",
			Flags: []cli.Flag{
				userFlag(),
				credentialIDFlag(),
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Usage:   "Credential type, required with --data",
				},
				&cli.StringFlag{
					Name:    "data",
					Aliases: []string{"d"},
					Usage:   "New credential payload as JSON",
				},
				&cli.StringFlag{
					Name:  "label",
					Usage: "New label",
				},
				&cli.StringFlag{
					Name:  "expires-at",
					Usage: "New expiry in YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339 format",
				},
				&cli.BoolFlag{
					Name:  "clear-expiry",
					Usage: "Remove the expiry",
				},
				&cli.StringFlag{
					Name:  "custom",
					Usage: "Replacement custom metadata as a JSON object",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					params := commands.UpdateCredentialParams{
						Type:        cmd.String("type"),
						Data:        cmd.String("data"),
						ExpiresAt:   cmd.String("expires-at"),
						ClearExpiry: cmd.Bool("clear-expiry"),
						Custom:      cmd.String("custom"),
					}
					if cmd.IsSet("label") {
						label := cmd.String("label")
						params.Label = &label
					}

					return commands.RunUpdateCredential(
						ctx,
						vault,
						commands.DefaultIO().Writer,
						cmd.String("user-id"),
						cmd.String("id"),
						params,
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "set-credential-status",
			Usage: "Deactivate or reactivate a credential",
			Flags: []cli.Flag{
				userFlag(),
				credentialIDFlag(),
				&cli.BoolFlag{
					Name:     "active",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "true to reactivate, false to deactivate",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					return commands.RunSetCredentialStatus(
						ctx,
						vault,
						commands.DefaultIO().Writer,
						cmd.String("user-id"),
						cmd.String("id"),
						cmd.Bool("active"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "rotate-credential",
			Usage: "Re-encrypt a credential under the next encryption version",
			Flags: []cli.Flag{
				userFlag(),
				credentialIDFlag(),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					return commands.RunRotateCredential(
						ctx,
						vault,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("user-id"),
						cmd.String("id"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "rotate-user-credentials",
			Usage: "Rotate every credential owned by a user",
			Flags: []cli.Flag{
				userFlag(),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					return commands.RunRotateUserCredentials(
						ctx,
						vault,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("user-id"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "delete-credential",
			Usage: "Permanently delete a credential",
			Flags: []cli.Flag{
				userFlag(),
				credentialIDFlag(),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					return commands.RunDeleteCredential(
						ctx,
						vault,
						commands.DefaultIO().Writer,
						cmd.String("user-id"),
						cmd.String("id"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "deactivate-expired-credentials",
			Usage: "Deactivate every active credential past its expiry",
			Flags: []cli.Flag{
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, version, func(ctx context.Context, container *app.Container) error {
					vault, err := container.CredentialUseCase()
					if err != nil {
						return err
					}

					return commands.RunDeactivateExpiredCredentials(
						ctx,
						vault,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("format"),
					)
				})
			},
		},
	}
}
