// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tokend/cmd/app/commands"
	"github.com/allisson/tokend/internal/app"
	"github.com/allisson/tokend/internal/config"
)

const version = "1.0.0"

// withContainer loads configuration, builds the DI container, runs fn,
// and shuts the container down afterwards.
func withContainer(fn func(container *app.Container, logger *slog.Logger) error) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	return fn(container, logger)
}

func main() {
	cmd := &cli.Command{
		Name:    "tokend",
		Usage:   "OAuth2 and OpenID Connect token issuance service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
				},
			},
			{
				Name:  "create-client",
				Usage: "Register a new OAuth client",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "client-id",
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "Public client identifier (e.g., web-app)",
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Human-readable client name",
					},
					&cli.StringFlag{
						Name:    "scopes",
						Aliases: []string{"s"},
						Usage:   "Comma-separated allowed scopes (omit for unrestricted)",
					},
					&cli.BoolFlag{
						Name:    "refresh-token",
						Aliases: []string{"r"},
						Value:   false,
						Usage:   "Allow refresh token issuance for this client",
					},
					&cli.StringFlag{
						Name:  "default-subject",
						Usage: "Subject UUID bound to client_credentials tokens",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(func(container *app.Container, logger *slog.Logger) error {
						clientUseCase, err := container.ClientUseCase()
						if err != nil {
							return fmt.Errorf("failed to initialize client use case: %w", err)
						}
						return commands.RunCreateClient(
							ctx,
							clientUseCase,
							logger,
							cmd.String("client-id"),
							cmd.String("name"),
							cmd.String("scopes"),
							cmd.Bool("refresh-token"),
							cmd.String("default-subject"),
							cmd.String("format"),
							commands.DefaultIO(),
						)
					})
				},
			},
			{
				Name:  "create-subject",
				Usage: "Register a new resource owner",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Required: true,
						Usage:    "Unique username",
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password (omit to be prompted)",
					},
					&cli.StringFlag{
						Name:  "permissions",
						Usage: "Comma-separated host permissions",
					},
					&cli.StringFlag{
						Name:  "roles",
						Usage: "Comma-separated host roles",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(func(container *app.Container, logger *slog.Logger) error {
						subjectUseCase, err := container.SubjectUseCase()
						if err != nil {
							return fmt.Errorf("failed to initialize subject use case: %w", err)
						}
						return commands.RunCreateSubject(
							ctx,
							subjectUseCase,
							logger,
							cmd.String("username"),
							cmd.String("password"),
							cmd.String("permissions"),
							cmd.String("roles"),
							cmd.String("format"),
							commands.DefaultIO(),
						)
					})
				},
			},
			{
				Name:  "create-scope",
				Usage: "Author a new scope",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Required: true,
						Usage:    "Scope identifier (e.g., content:read)",
					},
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Human-readable scope name",
					},
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Scope description",
					},
					&cli.BoolFlag{
						Name:  "umbrella",
						Usage: "Create an umbrella scope (groups children, no policy)",
					},
					&cli.StringFlag{
						Name:  "parent",
						Usage: "Parent scope id",
					},
					&cli.StringFlag{
						Name:     "grant-types",
						Aliases:  []string{"g"},
						Required: true,
						Usage:    "Comma-separated grant types the scope participates in",
					},
					&cli.StringFlag{
						Name:  "policy",
						Usage: "Granularity policy id (e.g., permission or role)",
					},
					&cli.StringFlag{
						Name:  "policy-config",
						Usage: "JSON object with policy-specific configuration",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(func(container *app.Container, logger *slog.Logger) error {
						scopeUseCase, err := container.ScopeUseCase()
						if err != nil {
							return fmt.Errorf("failed to initialize scope use case: %w", err)
						}
						return commands.RunCreateScope(
							ctx,
							scopeUseCase,
							logger,
							cmd.String("id"),
							cmd.String("name"),
							cmd.String("description"),
							cmd.Bool("umbrella"),
							cmd.String("parent"),
							cmd.String("grant-types"),
							cmd.String("policy"),
							cmd.String("policy-config"),
							cmd.String("format"),
							commands.DefaultIO(),
						)
					})
				},
			},
			{
				Name:  "create-signing-key",
				Usage: "Generate a new RSA signing key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "tokend-1",
						Usage:   "Key id advertised in token headers and JWKS",
					},
					&cli.IntFlag{
						Name:    "bits",
						Aliases: []string{"b"},
						Value:   2048,
						Usage:   "RSA key size in bits",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (omit to print the PEM)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunCreateSigningKey(
						container.Logger(),
						cmd.String("id"),
						int(cmd.Int("bits")),
						cmd.String("output"),
						commands.DefaultIO(),
					)
				},
			},
			{
				Name:  "clean-expired-tokens",
				Usage: "Delete token records past their expiry",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(func(container *app.Container, logger *slog.Logger) error {
						grantUseCase, err := container.GrantUseCase()
						if err != nil {
							return fmt.Errorf("failed to initialize grant use case: %w", err)
						}
						return commands.RunCleanExpiredTokens(
							ctx,
							grantUseCase,
							logger,
							cmd.String("format"),
							commands.DefaultIO(),
						)
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
