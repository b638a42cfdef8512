// Package main provides the flowforge command line tool.
package main

import (
	"context"
	"os"

	"github.com/dukex/flowforge/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	err := newCommand().Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("cli").Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "flowforge",
		Usage:                 "Validate and deploy workflow graphs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			validateCommand(),
			deployCommand(),
			templateCommand(),
		},
	}
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence (postgres://... or file://...)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}
