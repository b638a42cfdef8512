package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/flowforge/pkg/cmd"
	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "flowforge-api",
		Usage:                 "Import templates and deploy workflow graphs over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres://... or file://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "log-events",
				Usage:   "Subscribe to the event bus and log every deployment outcome",
				Sources: cli.EnvVars("LOG_EVENTS"),
			},
			&cli.StringFlag{
				Name:    "lock-provider",
				Usage:   "Deployment lock provider (memory, redis)",
				Value:   "memory",
				Sources: cli.EnvVars("LOCK_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the redis lock provider",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export deployment traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing flowforge API")

			registry := cmd.NewRegistry(logger)

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to open persistence: %w", err)
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if command.Bool("log-events") {
				if err := cmd.LogDeploymentEvents(ctx, eventBus, logger); err != nil {
					return fmt.Errorf("failed to subscribe to deployment events: %w", err)
				}
			}

			locker, closeLocker, err := cmd.NewLocker(command.String("lock-provider"), command.String("redis-addr"))
			if err != nil {
				return err
			}

			defer func() {
				if err := closeLocker(); err != nil {
					logger.ErrorContext(ctx, "Failed to close lock provider", "error", err)
				}
			}()

			opts := []deployment.Option{
				deployment.WithRegistry(registry),
				deployment.WithLocker(locker),
				deployment.WithPublisher(eventBus),
			}

			if command.Bool("otel-enabled") {
				tracer, shutdown, err := otelhelper.NewTracer(ctx, "flowforge-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				opts = append(opts, deployment.WithTracer(tracer))
			}

			api := NewAPI(
				logger,
				persistence,
				registry,
				deployment.NewDeployer(logger, persistence, opts...),
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
