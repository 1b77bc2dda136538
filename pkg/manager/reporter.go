package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/sagaflow/pkg/metrics"
	"github.com/dukex/sagaflow/pkg/registry"
	"github.com/robfig/cron/v3"
)

// Reporter periodically logs a summary of the registry and refreshes the
// registry gauges.
type Reporter struct {
	logger   *slog.Logger
	registry *registry.Registry
	cron     *cron.Cron
}

func NewReporter(logger *slog.Logger, reg *registry.Registry) *Reporter {
	return &Reporter{
		logger:   logger.With("module", "reporter"),
		registry: reg,
		cron:     cron.New(),
	}
}

// Start schedules the report with a cron spec such as "@every 1m".
func (r *Reporter) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.Report); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}

	r.cron.Start()

	return nil
}

func (r *Reporter) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (r *Reporter) Report() {
	workflows, versions := r.registry.Stats()
	metrics.SetRegistrySize(workflows, versions)

	latest := make(map[string]string, workflows)
	for _, name := range r.registry.Names() {
		if version, ok := r.registry.LatestVersion(name); ok {
			latest[name] = version
		}
	}

	r.logger.Info("Registry report", "workflows", workflows, "versions", versions, "latest", latest)
}
