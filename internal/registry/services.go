// Package registry holds resources shared across independent plans.
package registry

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
)

// ServiceEntry is a declared service and its currently requested operations.
type ServiceEntry struct {
	Name       string
	Operations []string
	Refs       int
}

// Services is a registry of service declarations keyed by service name.
// Redeclaring a service replaces its operations (last writer wins) and
// increments its reference count, so multiple consumers converge on a
// single managed instance. It is safe for concurrent use.
type Services struct {
	mu      sync.Mutex
	entries map[string]*ServiceEntry
}

// NewServices creates an empty registry.
func NewServices() *Services {
	return &Services{entries: make(map[string]*ServiceEntry)}
}

// Declare registers name with the given operations.
func (s *Services) Declare(name string, ops ...string) ServiceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		e = &ServiceEntry{Name: name}
		s.entries[name] = e
	} else if !slices.Equal(e.Operations, ops) {
		slog.Debug("service redeclared", "name", name, "from", e.Operations, "to", ops)
	}
	e.Operations = slices.Clone(ops)
	e.Refs++
	return e.copy()
}

// Lookup returns the entry for name.
func (s *Services) Lookup(name string) (ServiceEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return ServiceEntry{}, false
	}
	return e.copy(), true
}

// Release drops one reference to name and removes the entry at zero.
// It reports whether the entry is still registered.
func (s *Services) Release(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return false
	}
	e.Refs--
	if e.Refs <= 0 {
		delete(s.entries, name)
		return false
	}
	return true
}

// Names returns the registered service names, sorted.
func (s *Services) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *ServiceEntry) copy() ServiceEntry {
	return ServiceEntry{Name: e.Name, Operations: slices.Clone(e.Operations), Refs: e.Refs}
}
