package manager

import (
	"context"
	"log/slog"

	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/metrics"
	"github.com/dukex/sagaflow/pkg/models"
	"github.com/dukex/sagaflow/pkg/registry"
)

// Ingester registers workflow edits.
type Ingester struct {
	logger   *slog.Logger
	registry *registry.Registry
}

func NewIngester(logger *slog.Logger, reg *registry.Registry) *Ingester {
	return &Ingester{
		logger:   logger.With("module", "ingester"),
		registry: reg,
	}
}

// Apply derives the compensation graph of edit and registers the pair under
// the edit's name and version. A version that is already registered is kept
// as is, so running instances never see their definition change. It reports
// whether the registry changed.
func (i *Ingester) Apply(ctx context.Context, edit *events.ToManagerEdits) bool {
	logger := i.logger.With("workflow", edit.Name, "version", edit.Version)

	if edit.Workflow.HasCycle() {
		logger.WarnContext(ctx, "Workflow graph contains a cycle")
	}

	triple := models.NewWorkflowTriple(edit.Workflow, edit.Version)

	inserted := i.registry.Register(edit.Name, triple)

	workflows, versions := i.registry.Stats()
	metrics.SetRegistrySize(workflows, versions)

	if !inserted {
		logger.InfoContext(ctx, "Workflow version already registered, edit ignored")

		return false
	}

	logger.InfoContext(ctx, "Workflow registered",
		"processes", len(edit.Workflow),
		"edges", edit.Workflow.EdgeCount(),
		"workflows", workflows,
		"versions", versions,
	)

	return true
}
