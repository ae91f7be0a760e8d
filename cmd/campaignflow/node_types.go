package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dukex/campaignflow/pkg/cmd"
	"github.com/dukex/campaignflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func NewNodeTypesCommand() *cli.Command {
	return &cli.Command{
		Name:    "node-types",
		Aliases: []string{"nt"},
		Usage:   "List the node types a campaign can contain",
		Action: func(ctx context.Context, command *cli.Command) error {
			registry := cmd.NewRegistry(log.WithModule("cli"))

			w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tDESCRIPTION")

			for _, factory := range registry.GetAvailableNodes() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", factory.ID(), factory.Name(), factory.Description())
			}

			return w.Flush()
		},
	}
}
