package models

import "slices"

// RollbackTable maps a process to the processes that compensate it. It is
// built once at start-up and only read afterwards.
type RollbackTable struct {
	entries map[Process][]Process
}

func NewRollbackTable() *RollbackTable {
	return &RollbackTable{entries: make(map[Process][]Process)}
}

// Add appends a compensating process for p. Adding the same pair twice is a no-op.
func (r *RollbackTable) Add(p, rollback Process) {
	if slices.Contains(r.entries[p], rollback) {
		return
	}

	r.entries[p] = append(r.entries[p], rollback)
}

// Lookup returns the compensations for p; false when p has none.
func (r *RollbackTable) Lookup(p Process) ([]Process, bool) {
	if r == nil {
		return nil, false
	}

	rollbacks, ok := r.entries[p]
	if !ok || len(rollbacks) == 0 {
		return nil, false
	}

	return slices.Clone(rollbacks), true
}

func (r *RollbackTable) Len() int {
	if r == nil {
		return 0
	}

	return len(r.entries)
}

// Entries returns the table as a Workflow-shaped map, useful for listing.
func (r *RollbackTable) Entries() Workflow {
	if r == nil {
		return Workflow{}
	}

	return Workflow(r.entries).Clone()
}
