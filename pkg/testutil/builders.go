// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/models"
	"github.com/google/uuid"
)

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// CreateStatusReport creates a successful ToManager report for the "checkout"
// workflow with default values that can be overridden.
func CreateStatusReport(process models.Process, overrides ...func(*events.ToManager)) *events.ToManager {
	report := &events.ToManager{
		UUID:    uuid.New().String(),
		Name:    "checkout",
		Process: process,
		Status:  events.StatusSuccess,
		Schema:  "v0.1.0",
		Data:    json.RawMessage(`{"order":42}`),
	}

	for _, override := range overrides {
		override(report)
	}

	return report
}

func WithStatus(status events.Status) func(*events.ToManager) {
	return func(r *events.ToManager) {
		r.Status = status
	}
}

func WithVersion(version string) func(*events.ToManager) {
	return func(r *events.ToManager) {
		r.Version = &version
	}
}

func WithWorkflow(name string) func(*events.ToManager) {
	return func(r *events.ToManager) {
		r.Name = name
	}
}

func WithUUID(id string) func(*events.ToManager) {
	return func(r *events.ToManager) {
		r.UUID = id
	}
}

// CreateEdit creates a ToManagerEdits for the "checkout" workflow.
func CreateEdit(version string, workflow models.Workflow) *events.ToManagerEdits {
	return &events.ToManagerEdits{
		Name:     "checkout",
		Version:  version,
		Schema:   "v0.1.0",
		Workflow: workflow,
	}
}
