package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/cmd"
	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func deployCommand() *cli.Command {
	return &cli.Command{
		Name:      "deploy",
		Usage:     "Deploy a graph file against a stored template",
		ArgsUsage: "<graph.yaml|graph.json>",
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.StringFlag{
				Name:     "template-id",
				Aliases:  []string{"t"},
				Usage:    "Template the graph is deployed against",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "user-id",
				Aliases:  []string{"u"},
				Usage:    "Owner of the deployed workflow",
				Required: true,
				Sources:  cli.EnvVars("FLOWFORGE_USER"),
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Workflow status (draft, active, archived)",
				Value: string(models.WorkflowStatusDraft),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the compiled plan without writing it",
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Publish deployment events on this bus (gochannel, kafka)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.NArg() != 1 {
				return errors.New("expected exactly one graph file")
			}

			var graph models.Graph

			err := readDocument(command.Args().First(), &graph)
			if err != nil {
				return err
			}

			logger := log.WithModule("cli")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to open persistence: %w", err)
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			opts := []deployment.Option{deployment.WithRegistry(cmd.NewRegistry(logger))}

			if provider := command.String("event-bus"); provider != "" {
				eventBus, err := cmd.NewEventBus(provider, command.String("kafka-brokers"), logger)
				if err != nil {
					return err
				}

				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()

				opts = append(opts, deployment.WithPublisher(eventBus))
			}

			deployer := deployment.NewDeployer(logger, persistence, opts...)

			req := deployment.DeployRequest{
				TemplateID: command.String("template-id"),
				UserID:     command.String("user-id"),
				Status:     models.WorkflowStatus(command.String("status")),
				Graph:      &graph,
			}

			if command.Bool("dry-run") {
				plan, err := deployer.Compile(ctx, req)
				if err != nil {
					return err
				}

				return writeJSON(command, plan)
			}

			run, err := deployer.Deploy(ctx, req)
			if err != nil {
				if deployment.IsRetryable(err) {
					return fmt.Errorf("%w (retryable)", err)
				}

				return err
			}

			return writeJSON(command, run)
		},
	}
}
