package events

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/sagaflow/pkg/models"
)

// Status is the state a service reports for one process of a workflow instance.
type Status string

const (
	StatusSuccess    Status = "Success"
	StatusInProgress Status = "InProgress"
	StatusFailed     Status = "Failed"
)

// ToManager is a status report sent by a service.
type ToManager struct {
	UUID    string          `json:"uuid"              validate:"required"`
	Name    string          `json:"name"              validate:"required"` // Name of target workflow
	Version *string         `json:"version,omitempty"`                     // Version of target workflow, latest when absent
	Process models.Process  `json:"process"`
	Status  Status          `json:"status"            validate:"required,oneof=Success InProgress Failed"`
	Schema  string          `json:"schema"`         // ToManager schema version
	Data    json.RawMessage `json:"data,omitempty"` // Opaque payload carried to the next processes
}

// ExplicitVersion returns the version carried by the report. An empty string
// counts as absent.
func (m *ToManager) ExplicitVersion() (string, bool) {
	if m.Version == nil || *m.Version == "" {
		return "", false
	}

	return *m.Version, true
}

func (m *ToManager) String() string {
	version := "latest"
	if v, ok := m.ExplicitVersion(); ok {
		version = v
	}

	return fmt.Sprintf("ToManager { uuid: %s..., name: %s (%s), process: %s, status: %s, data: ... }",
		shortUUID(m.UUID), m.Name, version, m.Process, m.Status)
}

// FromManager instructs a service to run a process. Forward triggers and
// compensation triggers share this shape.
type FromManager struct {
	UUID    string          `json:"uuid"`
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Process models.Process  `json:"process"`
	Schema  string          `json:"schema"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewFromManager copies the instance identity and payload of report onto a
// trigger addressed to process.
func NewFromManager(report *ToManager, version string, process models.Process) *FromManager {
	return &FromManager{
		UUID:    report.UUID,
		Name:    report.Name,
		Version: version,
		Process: process,
		Schema:  report.Schema,
		Data:    report.Data,
	}
}

func (m *FromManager) String() string {
	return fmt.Sprintf("FromManager { uuid: %s..., name: %s (%s), process: %s, data: ... }",
		shortUUID(m.UUID), m.Name, m.Version, m.Process)
}

// ToManagerEdits defines the forward graph of a workflow version.
type ToManagerEdits struct {
	Name     string          `json:"name"     validate:"required"`
	Version  string          `json:"version"  validate:"required"`
	Schema   string          `json:"schema"`
	Workflow models.Workflow `json:"workflow"`
}

func (m *ToManagerEdits) String() string {
	return fmt.Sprintf("ToManagerEdits { name: %s (%s), workflow: ... }", m.Name, m.Version)
}

func shortUUID(uuid string) string {
	if len(uuid) <= 8 {
		return uuid
	}

	return uuid[:8]
}
