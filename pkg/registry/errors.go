package registry

import (
	"errors"
	"fmt"
)

// Lookup miss errors. None of them is fatal to a caller that processes a stream
// of messages; they identify which part of a lookup had no entry.
var (
	// ErrWorkflowNotFound indicates no version of the named workflow is registered.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrVersionNotFound indicates the workflow exists but not at the requested version.
	ErrVersionNotFound = errors.New("workflow version not found")

	// ErrProcessNotFound indicates the process is not a node of the resolved workflow.
	ErrProcessNotFound = errors.New("process not found in workflow")
)

// LookupError wraps a lookup miss with the key that was being resolved.
type LookupError struct {
	Op       string // Operation being performed (e.g., "lookup", "next")
	Workflow string // Workflow name
	Version  string // Version if one was resolved
	Process  string // Process if the miss concerns a node
	Err      error  // Underlying error
}

func (e *LookupError) Error() string {
	target := e.Workflow
	if e.Version != "" {
		target = fmt.Sprintf("%s@%s", e.Workflow, e.Version)
	}

	if e.Process != "" {
		return fmt.Sprintf("%s failed for process %s in workflow %s: %v", e.Op, e.Process, target, e.Err)
	}

	return fmt.Sprintf("%s failed for workflow %s: %v", e.Op, target, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func NewLookupError(op, workflow, version string, err error) *LookupError {
	return &LookupError{
		Op:       op,
		Workflow: workflow,
		Version:  version,
		Err:      err,
	}
}

// IsWorkflowNotFound checks if an error indicates the workflow name is unknown.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsVersionNotFound checks if an error indicates the version is unknown.
func IsVersionNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound)
}

// IsProcessNotFound checks if an error indicates the process is not a node of the workflow.
func IsProcessNotFound(err error) bool {
	return errors.Is(err, ErrProcessNotFound)
}

// IsLookupMiss reports whether err is any of the lookup miss errors.
func IsLookupMiss(err error) bool {
	return IsWorkflowNotFound(err) || IsVersionNotFound(err) || IsProcessNotFound(err)
}
