// Package metrics exposes Prometheus metrics for the manager loops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "sagaflow"

// Message outcomes.
const (
	OutcomeHandled   = "handled"
	OutcomeDecode    = "decode_error"
	OutcomeSkipped   = "skipped"
	OutcomePublish   = "publish_error"
	OutcomePanic     = "panic"
	OutcomeDuplicate = "duplicate"
)

// Loop names.
const (
	LoopStatus = "status"
	LoopEdits  = "edits"
)

var (
	// messagesTotal counts consumed messages by loop and outcome.
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Total number of consumed messages by loop and outcome",
		},
		[]string{"loop", "outcome"},
	)

	// triggersTotal counts published triggers.
	triggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_published_total",
			Help:      "Total number of trigger messages published",
		},
		[]string{"kind"}, // kind: forward, rollback
	)

	// missingRollbacksTotal counts traversed processes that had no rollback function.
	missingRollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollback_functions_missing_total",
			Help:      "Processes reached during compensation without a rollback function",
		},
	)

	// registryWorkflows is the number of workflow names known to the registry.
	registryWorkflows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_workflows",
			Help:      "Number of workflow names in the registry",
		},
	)

	// registryVersions is the number of workflow versions known to the registry.
	registryVersions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_versions",
			Help:      "Number of workflow versions in the registry",
		},
	)

	allMetrics = []prometheus.Collector{
		messagesTotal,
		triggersTotal,
		missingRollbacksTotal,
		registryWorkflows,
		registryVersions,
	}
)

// NewRegistry returns a Prometheus registry with the manager metrics and the Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	for _, collector := range allMetrics {
		reg.MustRegister(collector)
	}

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return reg
}

func RecordMessage(loop, outcome string) {
	messagesTotal.WithLabelValues(loop, outcome).Inc()
}

func RecordTrigger(kind string) {
	triggersTotal.WithLabelValues(kind).Inc()
}

func RecordMissingRollback() {
	missingRollbacksTotal.Inc()
}

func SetRegistrySize(workflows, versions int) {
	registryWorkflows.Set(float64(workflows))
	registryVersions.Set(float64(versions))
}
