// Package state is the process registry: each emulated process gets its
// own handle.Table, looked up by process id. The gRPC introspection
// surface (package introspect) reads this registry; the demo binary
// (cmd/capabi-demo) populates it.
//
// A map[uint32]*Process behind one sync.RWMutex: one registry-wide lock
// guarding the map, no per-entry lock since a Process's only mutable
// field (its handle.Table) already protects itself.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/rand"
)

// Process is the registry's record for one emulated process: its handle
// table plus the bookkeeping the introspection surface reports.
type Process struct {
	ID        uint32
	Table     *handle.Table
	CreatedAt time.Time
}

// Registry maps process ids to their Process record, mirroring
// containerStateService's idTable.
type Registry struct {
	mu        sync.RWMutex
	processes map[uint32]*Process
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{processes: make(map[uint32]*Process)}
}

// Create registers a new process with a freshly allocated handle.Table,
// rejecting a process id that's already present the same way
// ContainerPreRegister rejects a duplicate container id.
func (r *Registry) Create(id uint32, rng rand.Source) (*Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.processes[id]; ok {
		return nil, fmt.Errorf("state: process %d already registered", id)
	}

	p := &Process{
		ID:        id,
		Table:     handle.NewTable(rng),
		CreatedAt: time.Now(),
	}
	r.processes[id] = p
	logrus.Debugf("state: registered process %d", id)
	return p, nil
}

// Lookup returns the process record for id, if any.
func (r *Registry) Lookup(id uint32) (*Process, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processes[id]
	return p, ok
}

// Destroy removes id's entry. Callers are responsible for having closed
// every handle in the process's table (e.g. via thread_exit's release
// callback) before calling this — Destroy itself only drops the registry's
// reference to the table, it does not walk and close the table's entries.
func (r *Registry) Destroy(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.processes[id]; !ok {
		return fmt.Errorf("state: process %d not found", id)
	}
	delete(r.processes, id)
	logrus.Debugf("state: unregistered process %d", id)
	return nil
}

// Size reports the number of currently registered processes, mirroring
// containerStateService.ContainerDBSize.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.processes)
}

// Each calls fn for every registered process, holding the registry's read
// lock for the duration — used by the introspection surface to build a
// point-in-time snapshot without copying the whole map up front.
func (r *Registry) Each(fn func(*Process)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.processes {
		fn(p)
	}
}
