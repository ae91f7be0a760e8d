package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dukex/campaignflow/pkg/cmd"
	"github.com/dukex/campaignflow/pkg/log"
	"github.com/dukex/campaignflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

// openCampaigns builds a campaign service over databaseURL. The returned func closes the
// underlying persistence.
func openCampaigns(ctx context.Context, logger *slog.Logger, databaseURL string) (*services.Campaign, func(), error) {
	persistence, err := cmd.NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize persistence: %w", err)
	}

	closeFn := func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	return services.NewCampaign(persistence, services.WithLogger(logger)), closeFn, nil
}

func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List stored campaigns",
		Action: func(ctx context.Context, command *cli.Command) error {
			campaigns, closeFn, err := openCampaigns(ctx, log.WithModule("cli"), command.Root().String("database-url"))
			if err != nil {
				return err
			}
			defer closeFn()

			flows, err := campaigns.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list campaigns: %w", err)
			}

			w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tNODES\tEDGES")

			for _, flow := range flows {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", flow.ID, flow.Name, len(flow.Nodes), len(flow.Edges))
			}

			return w.Flush()
		},
	}
}

func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a stored campaign to a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Campaign id",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Directory the file is written to",
				Value: ".",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			campaigns, closeFn, err := openCampaigns(ctx, log.WithModule("cli"), command.Root().String("database-url"))
			if err != nil {
				return err
			}
			defer closeFn()

			filename, data, err := campaigns.Export(ctx, command.String("id"))
			if err != nil {
				return fmt.Errorf("failed to export campaign: %w", err)
			}

			path := filepath.Join(command.String("out"), filename)

			err = os.WriteFile(path, data, 0o644)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			_, err = fmt.Fprintln(command.Root().Writer, path)

			return err
		},
	}
}
