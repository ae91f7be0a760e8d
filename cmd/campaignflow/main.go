package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/campaignflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "campaignflow",
		Usage:                 "Validate, list and export campaign flows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file://path, postgres://..., redis://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
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
			NewValidateCommand(),
			NewListCommand(),
			NewExportCommand(),
			NewNodeTypesCommand(),
		},
	}
}

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err == nil {
		return
	}

	if !errors.Is(err, errInvalidFlows) {
		fmt.Fprintln(os.Stderr, err)
	}

	os.Exit(1)
}
