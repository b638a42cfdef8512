package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/cmd"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func templateCommand() *cli.Command {
	return &cli.Command{
		Name:    "template",
		Aliases: []string{"tpl"},
		Usage:   "Manage workflow templates",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Store a template file, replacing any previous version",
				ArgsUsage: "<template.yaml|template.json>",
				Flags: []cli.Flag{
					databaseURLFlag(),
					&cli.StringFlag{
						Name:  "id",
						Usage: "Template ID, when the file does not set one",
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					if command.NArg() != 1 {
						return errors.New("expected exactly one template file")
					}

					var template models.Template

					err := readDocument(command.Args().First(), &template)
					if err != nil {
						return err
					}

					templateID := command.String("id")
					if templateID == "" {
						templateID = template.ID
					}

					return withTemplates(ctx, command, func(templates *services.Template) error {
						stored, err := templates.Import(ctx, templateID, &template)
						if err != nil {
							return err
						}

						return writeJSON(command, stored)
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Print a stored template",
				ArgsUsage: "<template-id>",
				Flags:     []cli.Flag{databaseURLFlag()},
				Action: func(ctx context.Context, command *cli.Command) error {
					if command.NArg() != 1 {
						return errors.New("expected exactly one template id")
					}

					return withTemplates(ctx, command, func(templates *services.Template) error {
						template, err := templates.Get(ctx, command.Args().First())
						if err != nil {
							return err
						}

						return writeJSON(command, template)
					})
				},
			},
		},
	}
}

func withTemplates(ctx context.Context, command *cli.Command, fn func(*services.Template) error) error {
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

	return fn(services.NewTemplate(persistence))
}
