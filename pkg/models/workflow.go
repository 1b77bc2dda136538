package models

import (
	"slices"
	"sort"
)

// Workflow maps a process to the processes triggered when it succeeds.
// Target lists keep their order and may contain duplicates.
type Workflow map[Process][]Process

// Edge is a single directed edge of a Workflow.
type Edge struct {
	From Process `json:"from"`
	To   Process `json:"to"`
}

// BuildAntiWorkflow reverses every edge of original: for each src -> target it
// records target -> src. Predecessor lists follow the iteration order of
// original with sources visited in sorted order, so the result is deterministic.
func BuildAntiWorkflow(original Workflow) Workflow {
	reversed := make(Workflow, len(original))

	for _, src := range original.Processes() {
		for _, target := range original[src] {
			reversed[target] = append(reversed[target], src)
		}
	}

	return reversed
}

// Processes returns the source nodes of w in a stable order.
func (w Workflow) Processes() []Process {
	keys := make([]Process, 0, len(w))
	for p := range w {
		keys = append(keys, p)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	return keys
}

// Edges lists every edge, grouped by source in stable order.
func (w Workflow) Edges() []Edge {
	edges := make([]Edge, 0, len(w))

	for _, src := range w.Processes() {
		for _, target := range w[src] {
			edges = append(edges, Edge{From: src, To: target})
		}
	}

	return edges
}

// EdgeCount is the total number of edges, duplicates included.
func (w Workflow) EdgeCount() int {
	n := 0
	for _, targets := range w {
		n += len(targets)
	}

	return n
}

// Clone returns a deep copy.
func (w Workflow) Clone() Workflow {
	if w == nil {
		return nil
	}

	cloned := make(Workflow, len(w))
	for p, targets := range w {
		cloned[p] = slices.Clone(targets)
	}

	return cloned
}

// HasCycle reports whether the graph contains a directed cycle.
func (w Workflow) HasCycle() bool {
	const (
		unvisited = iota
		inStack
		done
	)

	state := make(map[Process]int, len(w))

	var visit func(p Process) bool
	visit = func(p Process) bool {
		switch state[p] {
		case inStack:
			return true
		case done:
			return false
		}

		state[p] = inStack

		for _, next := range w[p] {
			if visit(next) {
				return true
			}
		}

		state[p] = done

		return false
	}

	for _, p := range w.Processes() {
		if visit(p) {
			return true
		}
	}

	return false
}
