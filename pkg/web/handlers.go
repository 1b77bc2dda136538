// Package web provides the HTTP API: registry inspection for the manager and
// edit submission for the forge.
package web

import (
	"log/slog"

	"github.com/dukex/sagaflow/pkg/forge"
	"github.com/dukex/sagaflow/pkg/registry"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	logger   *slog.Logger
	registry *registry.Registry
	forge    *forge.Forge
}

func NewAPIHandlers(logger *slog.Logger, reg *registry.Registry, f *forge.Forge) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		registry: reg,
		forge:    f,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	names := h.registry.Names()
	workflows := make([]WorkflowSummary, 0, len(names))

	for _, name := range names {
		latest, _ := h.registry.LatestVersion(name)

		workflows = append(workflows, WorkflowSummary{
			Name:     name,
			Latest:   latest,
			Versions: h.registry.Versions(name),
		})
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	name := c.Params("name")

	latest, ok := h.registry.LatestVersion(name)
	if !ok {
		return handleLookupError(c, registry.NewLookupError("get_workflow", name, "", registry.ErrWorkflowNotFound))
	}

	return c.JSON(WorkflowSummary{
		Name:     name,
		Latest:   latest,
		Versions: h.registry.Versions(name),
	})
}

// GetWorkflowVersion returns one registered version. The version "latest"
// resolves to the highest registered version.
func (h *APIHandlers) GetWorkflowVersion(c fiber.Ctx) error {
	name := c.Params("name")
	version := c.Params("version")

	latest, ok := h.registry.LatestVersion(name)
	if !ok {
		return handleLookupError(c, registry.NewLookupError("get_workflow", name, version, registry.ErrWorkflowNotFound))
	}

	if version == "latest" {
		version = latest
	}

	triple, err := h.registry.Lookup(name, version)
	if err != nil {
		return handleLookupError(c, err)
	}

	return c.JSON(WorkflowVersion{
		Name:       name,
		Latest:     version == latest,
		Definition: triple,
	})
}

func (h *APIHandlers) SubmitEdit(c fiber.Ctx) error {
	edit, err := h.forge.Submit(c.Context(), c.Body())
	if err != nil {
		switch {
		case forge.IsInvalidEdit(err):
			return badRequest(c, err.Error())
		case forge.IsPublishError(err):
			h.logger.ErrorContext(c.Context(), "Failed to publish edit", "error", err)

			return serviceUnavailable(c, err)
		default:
			return internalError(c, err)
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(EditAccepted{
		Name:    edit.Name,
		Version: edit.Version,
		Topic:   h.forge.Topic(),
	})
}
