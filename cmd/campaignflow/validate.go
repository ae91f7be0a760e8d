package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dukex/campaignflow/pkg/export"
	"github.com/dukex/campaignflow/pkg/log"
	"github.com/dukex/campaignflow/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

// errInvalidFlows is returned when at least one checked flow failed validation.
var errInvalidFlows = errors.New("one or more campaign flows are invalid")

// report is the outcome for one checked document or stored campaign.
type report struct {
	Source     string             `json:"source"`
	Valid      bool               `json:"valid"`
	Errors     []validation.Error `json:"errors"`
	Violations []string           `json:"violations,omitempty"`
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate campaign documents or stored campaigns",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "id",
				Usage: "Validate a stored campaign by id (repeatable)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format (text, json)",
				Value: "text",
				Validator: func(format string) error {
					if format != "text" && format != "json" {
						return fmt.Errorf("unsupported format: %s", format)
					}

					return nil
				},
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			files := command.Args().Slice()
			ids := command.StringSlice("id")

			if len(files) == 0 && len(ids) == 0 {
				return errors.New("nothing to validate: pass files or --id")
			}

			reports := make([]report, 0, len(files)+len(ids))

			for _, path := range files {
				r, err := validateFile(path)
				if err != nil {
					return err
				}

				reports = append(reports, r)
			}

			if len(ids) > 0 {
				stored, err := validateStored(ctx, command.Root().String("database-url"), ids)
				if err != nil {
					return err
				}

				reports = append(reports, stored...)
			}

			out := command.Root().Writer

			var err error
			if command.String("format") == "json" {
				err = writeJSON(out, reports)
			} else {
				err = writeText(out, reports)
			}

			if err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			for _, r := range reports {
				if !r.Valid {
					return errInvalidFlows
				}
			}

			return nil
		},
	}
}

func validateFile(path string) (report, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return report{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	flow, violations, err := export.Decode(body)
	if err != nil {
		return report{}, fmt.Errorf("%s: %w", path, err)
	}

	if len(violations) > 0 {
		return report{Source: path, Errors: []validation.Error{}, Violations: violations}, nil
	}

	return newReport(path, validation.Validate(flow)), nil
}

func validateStored(ctx context.Context, databaseURL string, ids []string) ([]report, error) {
	logger := log.WithModule("cli")

	campaigns, closeFn, err := openCampaigns(ctx, logger, databaseURL)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	reports := make([]report, 0, len(ids))

	for _, id := range ids {
		result, err := campaigns.Validate(ctx, id)
		if err != nil {
			return nil, err
		}

		reports = append(reports, newReport(id, result))
	}

	return reports, nil
}

func newReport(source string, result validation.Result) report {
	errs := result.Errors
	if errs == nil {
		errs = []validation.Error{}
	}

	return report{Source: source, Valid: result.Valid, Errors: errs}
}

func writeJSON(out io.Writer, reports []report) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(reports)
}

func writeText(out io.Writer, reports []report) error {
	for _, r := range reports {
		status := "valid"
		if !r.Valid {
			status = "invalid"
		}

		if _, err := fmt.Fprintf(out, "%s: %s\n", r.Source, status); err != nil {
			return err
		}

		for _, violation := range r.Violations {
			if _, err := fmt.Fprintf(out, "  - document: %s\n", violation); err != nil {
				return err
			}
		}

		for _, e := range r.Errors {
			line := "  - " + e.Message
			if e.NodeID != "" {
				line = fmt.Sprintf("  - [%s] %s", e.NodeID, e.Message)
			}

			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
	}

	return nil
}
