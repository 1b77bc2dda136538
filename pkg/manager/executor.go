// Package manager runs the two control loops of the orchestrator: edit
// ingestion into the workflow registry and status-driven execution.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/metrics"
	"github.com/dukex/sagaflow/pkg/models"
	"github.com/dukex/sagaflow/pkg/otelhelper"
	"github.com/dukex/sagaflow/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownStatus indicates a status report with a status the executor does not handle.
var ErrUnknownStatus = errors.New("unknown status")

// Trigger is an outbound message together with why it is sent.
type Trigger struct {
	Kind    events.TriggerKind
	Message *events.FromManager
}

// Executor turns a status report into the triggers it causes. It holds no
// state of its own besides the shared registry and the rollback table.
type Executor struct {
	logger    *slog.Logger
	registry  *registry.Registry
	rollbacks *models.RollbackTable
}

func NewExecutor(logger *slog.Logger, reg *registry.Registry, rollbacks *models.RollbackTable) *Executor {
	if rollbacks == nil {
		rollbacks = models.NewRollbackTable()
	}

	return &Executor{
		logger:    logger.With("module", "executor"),
		registry:  reg,
		rollbacks: rollbacks,
	}
}

// ResolveVersion returns the version carried by report, or the latest
// registered version of the workflow when the report has none.
func (e *Executor) ResolveVersion(ctx context.Context, report *events.ToManager) (string, error) {
	if version, ok := report.ExplicitVersion(); ok {
		return version, nil
	}

	e.logger.DebugContext(ctx, "Version is not set, using latest version", "workflow", report.Name)

	version, ok := e.registry.LatestVersion(report.Name)
	if !ok {
		return "", registry.NewLookupError("resolve_version", report.Name, "", registry.ErrWorkflowNotFound)
	}

	return version, nil
}

// Plan computes the triggers for report in publish order. A lookup miss is
// returned as an error matching registry.IsLookupMiss and means the report
// should be skipped.
func (e *Executor) Plan(ctx context.Context, report *events.ToManager) ([]Trigger, error) {
	version, err := e.ResolveVersion(ctx, report)
	if err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String(otelhelper.WorkflowVersionKey, version))

	logger := e.logger.With(
		"workflow", report.Name,
		"version", version,
		"uuid", report.UUID,
		"process", report.Process.String(),
	)

	switch report.Status {
	case events.StatusSuccess:
		return e.forward(ctx, logger, report, version)
	case events.StatusInProgress:
		// no timeout tracking, informational only
		logger.InfoContext(ctx, "Process is in progress")

		return nil, nil
	case events.StatusFailed:
		return e.compensate(ctx, logger, report, version)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, report.Status)
	}
}

func (e *Executor) forward(
	ctx context.Context,
	logger *slog.Logger,
	report *events.ToManager,
	version string,
) ([]Trigger, error) {
	triple, err := e.registry.Lookup(report.Name, version)
	if err != nil {
		return nil, err
	}

	next, ok := triple.Next(report.Process)
	if !ok {
		if len(triple.Predecessors(report.Process)) > 0 {
			logger.InfoContext(ctx, "Process has no downstream processes, branch finished")

			return nil, nil
		}

		return nil, &registry.LookupError{
			Op:       "next",
			Workflow: report.Name,
			Version:  version,
			Process:  report.Process.String(),
			Err:      registry.ErrProcessNotFound,
		}
	}

	triggers := make([]Trigger, 0, len(next))
	for _, process := range next {
		triggers = append(triggers, Trigger{
			Kind:    events.TriggerKindForward,
			Message: events.NewFromManager(report, version, process),
		})
	}

	logger.DebugContext(ctx, "Planned forward triggers", "count", len(triggers))

	return triggers, nil
}

// compensate walks the anti-workflow breadth-first from the failed process.
// Every predecessor reached is queued for further traversal whether or not it
// has a rollback function. A visited set keeps cyclic graphs finite and
// compensates each process at most once per failure.
func (e *Executor) compensate(
	ctx context.Context,
	logger *slog.Logger,
	report *events.ToManager,
	version string,
) ([]Trigger, error) {
	triple, err := e.registry.Lookup(report.Name, version)
	if err != nil {
		return nil, err
	}

	var triggers []Trigger

	queue := []models.Process{report.Process}
	visited := map[models.Process]struct{}{report.Process: {}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, predecessor := range triple.Predecessors(current) {
			if _, seen := visited[predecessor]; seen {
				continue
			}

			visited[predecessor] = struct{}{}
			queue = append(queue, predecessor)

			rollbacks, ok := e.rollbacks.Lookup(predecessor)
			if !ok {
				logger.WarnContext(ctx, "No rollback function defined, continuing upstream",
					"predecessor", predecessor.String())
				metrics.RecordMissingRollback()

				continue
			}

			for _, rollback := range rollbacks {
				triggers = append(triggers, Trigger{
					Kind:    events.TriggerKindRollback,
					Message: events.NewFromManager(report, version, rollback),
				})
			}
		}
	}

	logger.InfoContext(ctx, "Planned compensation", "visited", len(visited)-1, "count", len(triggers))

	return triggers, nil
}
