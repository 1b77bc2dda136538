// Package registry keeps the versioned in-memory store of workflow definitions.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dukex/sagaflow/pkg/models"
)

// Registry maps workflow name -> version -> WorkflowTriple.
//
// Reads take a shared lock and may run concurrently; Register takes the
// exclusive lock. sync.RWMutex blocks new readers once a writer is waiting,
// so a steady stream of lookups cannot starve edit ingestion. Every critical
// section releases its lock through defer and recovers panics, which keeps
// the store usable after a failure inside one access.
type Registry struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	workflows map[string]map[string]*models.WorkflowTriple
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		workflows: make(map[string]map[string]*models.WorkflowTriple),
	}
}

func (r *Registry) read(op string, fn func()) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defer r.recoverAccess(op)

	fn()
}

func (r *Registry) write(op string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverAccess(op)

	fn()
}

func (r *Registry) recoverAccess(op string) {
	if rec := recover(); rec != nil {
		r.logger.Error("Recovered panic inside registry access", "op", op, "panic", fmt.Sprint(rec))
	}
}

// Register stores triple under name and triple.Version() unless that slot is
// already taken. The first registration for a (name, version) wins; it returns
// false when the call was a no-op.
func (r *Registry) Register(name string, triple *models.WorkflowTriple) bool {
	if triple == nil {
		return false
	}

	inserted := false

	r.write("register", func() {
		versions, ok := r.workflows[name]
		if !ok {
			versions = make(map[string]*models.WorkflowTriple)
			r.workflows[name] = versions
		}

		if _, exists := versions[triple.Version()]; exists {
			return
		}

		versions[triple.Version()] = triple
		inserted = true
	})

	return inserted
}

// Get returns the triple registered for (name, version).
func (r *Registry) Get(name, version string) (*models.WorkflowTriple, bool) {
	var (
		triple *models.WorkflowTriple
		found  bool
	)

	r.read("get", func() {
		triple, found = r.workflows[name][version]
	})

	return triple, found
}

// Lookup is Get with a typed error describing which part of the key is unknown.
func (r *Registry) Lookup(name, version string) (*models.WorkflowTriple, error) {
	var (
		triple    *models.WorkflowTriple
		knownName bool
	)

	r.read("lookup", func() {
		var versions map[string]*models.WorkflowTriple

		versions, knownName = r.workflows[name]
		triple = versions[version]
	})

	switch {
	case !knownName:
		return nil, NewLookupError("lookup", name, version, ErrWorkflowNotFound)
	case triple == nil:
		return nil, NewLookupError("lookup", name, version, ErrVersionNotFound)
	default:
		return triple, nil
	}
}

// LatestVersion returns the greatest version registered for name under
// CompareVersions.
func (r *Registry) LatestVersion(name string) (string, bool) {
	var (
		latest string
		found  bool
	)

	r.read("latest_version", func() {
		for version := range r.workflows[name] {
			if !found || CompareVersions(version, latest) > 0 {
				latest = version
				found = true
			}
		}
	})

	return latest, found
}

// Versions lists the versions of name in ascending order.
func (r *Registry) Versions(name string) []string {
	var versions []string

	r.read("versions", func() {
		versions = make([]string, 0, len(r.workflows[name]))
		for version := range r.workflows[name] {
			versions = append(versions, version)
		}
	})

	SortVersions(versions)

	return versions
}

// Names lists the registered workflow names in lexical order.
func (r *Registry) Names() []string {
	var names []string

	r.read("names", func() {
		names = make([]string, 0, len(r.workflows))
		for name := range r.workflows {
			names = append(names, name)
		}
	})

	sort.Strings(names)

	return names
}

// Stats returns the number of workflow names and the total number of versions.
func (r *Registry) Stats() (workflows int, versions int) {
	r.read("stats", func() {
		workflows = len(r.workflows)
		for _, v := range r.workflows {
			versions += len(v)
		}
	})

	return workflows, versions
}
