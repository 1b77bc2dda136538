package models

import (
	"encoding/json"
	"slices"
)

// WorkflowTriple pairs a forward workflow with its compensation graph for one version.
// The compensation graph is always derived from the forward graph at construction
// and neither can be modified afterwards.
type WorkflowTriple struct {
	workflow     Workflow
	antiWorkflow Workflow
	version      string
}

// NewWorkflowTriple copies workflow and derives its anti-workflow.
func NewWorkflowTriple(workflow Workflow, version string) *WorkflowTriple {
	forward := workflow.Clone()
	if forward == nil {
		forward = Workflow{}
	}

	return &WorkflowTriple{
		workflow:     forward,
		antiWorkflow: BuildAntiWorkflow(forward),
		version:      version,
	}
}

func (t *WorkflowTriple) Version() string {
	return t.version
}

// Workflow returns a copy of the forward graph.
func (t *WorkflowTriple) Workflow() Workflow {
	return t.workflow.Clone()
}

// AntiWorkflow returns a copy of the compensation graph.
func (t *WorkflowTriple) AntiWorkflow() Workflow {
	return t.antiWorkflow.Clone()
}

// Next returns the out-edges of p. The boolean is false when p is not a node
// with out-edges in the forward graph.
func (t *WorkflowTriple) Next(p Process) ([]Process, bool) {
	next, ok := t.workflow[p]

	return slices.Clone(next), ok
}

// Predecessors returns the processes that had an edge into p.
func (t *WorkflowTriple) Predecessors(p Process) []Process {
	return slices.Clone(t.antiWorkflow[p])
}

type workflowTripleJSON struct {
	Version      string `json:"version"`
	Workflow     []Edge `json:"workflow"`
	AntiWorkflow []Edge `json:"anti_workflow"`
	Cyclic       bool   `json:"cyclic"`
}

func (t *WorkflowTriple) MarshalJSON() ([]byte, error) {
	return json.Marshal(workflowTripleJSON{
		Version:      t.version,
		Workflow:     t.workflow.Edges(),
		AntiWorkflow: t.antiWorkflow.Edges(),
		Cyclic:       t.workflow.HasCycle(),
	})
}
