package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/registry"
	cli "github.com/urfave/cli/v3"
)

var errInvalidGraph = errors.New("graph is invalid")

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a graph file without contacting storage",
		ArgsUsage: "<graph.yaml|graph.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Status the graph would be deployed with (draft, active, archived)",
				Value: string(models.WorkflowStatusDraft),
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
			validator := deployment.NewGraphValidator(registry.NewDefaultRegistry(logger), nil)

			err = validator.Validate(&graph, models.WorkflowStatus(command.String("status")))
			if err == nil {
				_, err = fmt.Fprintln(command.Root().Writer, "graph is valid")

				return err
			}

			var verr *deployment.ValidationError
			if !errors.As(err, &verr) {
				return err
			}

			for _, issue := range verr.Issues {
				_, _ = fmt.Fprintln(command.Root().Writer, issue.String())
			}

			return fmt.Errorf("%w: %d issue(s)", errInvalidGraph, len(verr.Issues))
		},
	}
}
