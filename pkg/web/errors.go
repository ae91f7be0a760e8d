package web

import (
	"errors"
	"strings"

	"github.com/dukex/campaignflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrCampaignNotFound):
		return notFound(c, "campaign_not_found", "campaign not found")
	case errors.Is(err, services.ErrNodeNotFound):
		return notFound(c, "node_not_found", "node not found")
	case errors.Is(err, services.ErrEdgeNotFound):
		return notFound(c, "edge_not_found", "edge not found")
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

func violationsDetail(violations []string) string {
	return "Invalid campaign document: " + strings.Join(violations, "; ")
}
