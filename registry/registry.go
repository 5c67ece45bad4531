package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/maps"
)

// Registry is the process-wide directory of known hosts. A single
// Registry is shared by every HTTP worker goroutine accepting streaming
// connections; its RWMutex is the "registry lock" of spec.md §5, held
// only across lookups and never across socket I/O.
type Registry struct {
	mu    sync.RWMutex
	hosts map[string]*Host

	accepting atomic.Bool
	isParent  atomic.Bool
}

// NewRegistry creates an empty registry. Children are accepted by
// default; call SetAcceptingChildren(false) to simulate the "system is
// backfilling higher tiers" admission gate from spec.md §4.F step 3.
func NewRegistry() *Registry {
	r := &Registry{hosts: make(map[string]*Host)}
	r.accepting.Store(true)
	return r
}

// AcceptingChildren reports the global admission predicate
// (children_should_be_accepted in the original).
func (r *Registry) AcceptingChildren() bool {
	return r.accepting.Load()
}

// SetAcceptingChildren toggles the global admission predicate.
func (r *Registry) SetAcceptingChildren(v bool) {
	r.accepting.Store(v)
}

// MarkAsParent implements spec.md §4.H's "set a process-wide 'is parent'
// label" step at its true granularity: once any handoff has ever
// succeeded, this process is permanently labeled a parent. Safe to call
// repeatedly; it only ever transitions false -> true.
func (r *Registry) MarkAsParent() {
	r.isParent.Store(true)
}

// IsParent reports the process-wide "is parent" label.
func (r *Registry) IsParent() bool {
	return r.isParent.Load()
}

// FindByGUID looks up a host by machine GUID. Archived hosts are
// reported as absent, per spec.md §4.D ("If archived, treat as absent").
func (r *Registry) FindByGUID(guid string) (*Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.hosts[guid]
	if !ok || h.Archived {
		return nil, false
	}
	return h, true
}

// FindOrCreate returns the host for identity.MachineGUID, creating it
// (and recording systemInfo + cfg) if it does not yet exist. If the host
// already exists, its identity and configuration fields are refreshed
// in place -- a reconnecting child's metadata always wins -- but its
// receiver slot and Archived/PendingContextLoad flags are left alone.
//
// This corresponds to spec.md §4.F's rrdhost_find_or_create call; it is
// invoked only after takeover, deliberately, so that a connection
// rejected earlier in the pipeline never creates a host (spec.md §4.D
// rationale).
func (r *Registry) FindOrCreate(identity Identity, cfg Config, systemInfo map[string]string) *Host {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hosts[identity.MachineGUID]
	if !ok {
		h = &Host{
			Identity:   identity,
			Config:     cfg,
			SystemInfo: systemInfo,
		}
		r.hosts[identity.MachineGUID] = h
		return h
	}

	h.Identity = identity
	h.Config = cfg
	h.SystemInfo = systemInfo
	return h
}

// GUIDs returns a sorted snapshot of known machine GUIDs, used by
// diagnostics; sorting keeps output deterministic for logs and tests.
func (r *Registry) GUIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	guids := maps.Keys(r.hosts)
	sort.Strings(guids)
	return guids
}
