package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/campaignflow/pkg/cmd"
	"github.com/dukex/campaignflow/pkg/config"
	"github.com/dukex/campaignflow/pkg/log"
	"github.com/dukex/campaignflow/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "campaignflow-api",
		Usage:                 "Edit, store and validate campaign flows over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML settings file; explicit flags take precedence",
				Sources: cli.EnvVars("CAMPAIGNFLOW_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file://path, postgres://..., redis://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			settings, err := resolveSettings(command)
			if err != nil {
				return err
			}

			log.Setup(settings.LogLevel)

			logger.InfoContext(ctx, "Initializing campaignflow API")

			if settings.Tracing {
				shutdown, err := otelhelper.Setup(ctx, "campaignflow-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracing: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			registry := cmd.NewRegistry(logger)

			persistence, err := cmd.NewPersistence(ctx, logger, settings.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(settings.EventBus, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize event bus: %w", err)
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
			)

			err = api.SubscribeEvents(ctx)
			if err != nil {
				return fmt.Errorf("failed to subscribe to events: %w", err)
			}

			err = api.Start(settings.Port)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveSettings(command *cli.Command) (config.Config, error) {
	flags := config.Config{
		Port:        command.Int("port"),
		DatabaseURL: command.String("database-url"),
		EventBus:    command.String("event-bus"),
		LogLevel:    command.String("log-level"),
		Tracing:     command.Bool("tracing"),
	}

	path := command.String("config")
	if path == "" {
		return flags, nil
	}

	file, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	return file.Resolve(flags, command.IsSet), nil
}
