package web

import (
	"github.com/dukex/sagaflow/pkg/registry"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

func serviceUnavailable(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusServiceUnavailable).
		WithInstance(c.Path()).
		WithType("publish_failed").
		WithError(err)

	return c.Status(fiber.StatusServiceUnavailable).JSON(problem)
}

// handleLookupError maps registry misses to 404 problems.
func handleLookupError(c fiber.Ctx, err error) error {
	var problemType string

	switch {
	case registry.IsWorkflowNotFound(err):
		problemType = "workflow_not_found"
	case registry.IsVersionNotFound(err):
		problemType = "version_not_found"
	default:
		return internalError(c, err)
	}

	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(err.Error())

	return c.Status(fiber.StatusNotFound).JSON(problem)
}
