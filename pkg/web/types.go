package web

import "github.com/dukex/sagaflow/pkg/models"

type WorkflowSummary struct {
	Name     string   `json:"name"`
	Latest   string   `json:"latest"`
	Versions []string `json:"versions"`
}

type WorkflowVersion struct {
	Name       string                 `json:"name"`
	Latest     bool                   `json:"latest"`
	Definition *models.WorkflowTriple `json:"definition"`
}

type EditAccepted struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Topic   string `json:"topic"`
}
