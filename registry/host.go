// Package registry implements the process-wide host directory the
// streaming receiver binds incoming connections to: the external
// "rrdhost" collaborator from spec.md §1. It owns host lifecycle and the
// single-slot, lock-guarded receiver attachment point each host exposes.
package registry

import (
	"sync"
	"time"

	"github.com/ndstream/receiver/protocol/streamwire"
)

// StaleAfter is the age past which an attached receiver's last message
// is considered stale rather than merely quiet (spec.md §4.D).
const StaleAfter = 30 * time.Second

// AttachedReceiver is the narrow view the registry needs of whatever is
// currently bound to a host's receiver slot. The receiver package
// implements this; registry does not import receiver, keeping the
// host/receiver relationship a one-way dependency as Design Notes §9
// requires ("the host must never free an attached Receiver State").
type AttachedReceiver interface {
	// LastMessageMonotonic returns the monotonic timestamp of the last
	// message seen on this connection.
	LastMessageMonotonic() time.Time

	// RequestStop asks the receiver's owning streaming worker to stop,
	// recording the given reason for its exit log line.
	RequestStop(reason string)

	// Stopped is closed once the receiver has fully exited.
	Stopped() <-chan struct{}
}

// Occupancy classifies a host's receiver slot as observed by the
// duplicate resolver.
type Occupancy int

const (
	// Empty means no receiver is attached.
	Empty Occupancy = iota
	// Working means a receiver is attached and recently active.
	Working
	// Stale means a receiver is attached but hasn't sent a message
	// within StaleAfter.
	Stale
)

// MemoryMode mirrors the small enum of storage engines a host can be
// configured with; the acceptance core only needs to carry the value
// through to the host record, never interpret it.
type MemoryMode string

const (
	MemoryModeRAM      MemoryMode = "ram"
	MemoryModeSave     MemoryMode = "save"
	MemoryModeMap      MemoryMode = "map"
	MemoryModeNone     MemoryMode = "none"
	MemoryModeDBEngine MemoryMode = "dbengine"
)

// HealthMode is the three-valued health-enable flag from spec.md §3.
type HealthMode int

const (
	HealthAuto HealthMode = iota
	HealthOn
	HealthOff
)

// ForwardConfig is the forward-streaming (parent-side) configuration
// snapshot a receiver carries for the host it binds to.
type ForwardConfig struct {
	Enabled        bool
	Parents        []string
	APIKey         string
	ChartsFiltered string
}

// ReplicationConfig is the replication configuration snapshot.
type ReplicationConfig struct {
	Enabled bool
	Period  time.Duration
	Step    time.Duration
}

// Identity is the set of host-identifying fields carried by a streaming
// handshake, used both to create a new Host and to refresh an existing
// one on reconnect.
type Identity struct {
	Hostname         string
	RegistryHostname string
	MachineGUID      string
	OS               string
	Timezone         string
	AbbrevTimezone   string
	UTCOffset        int32
	ProgramName      string
	ProgramVersion   string
}

// Config is the per-connection configuration snapshot applied to a host
// when it is bound (spec.md §3 "Config snapshot").
type Config struct {
	UpdateEvery time.Duration
	History     int
	MemoryMode  MemoryMode
	Health      HealthMode
	Send        ForwardConfig
	Replication ReplicationConfig
	Ephemeral   bool
}

// Host is the in-memory representation of a child node. Exactly one
// AttachedReceiver may be bound to its receiver slot at a time, guarded
// by mu (the "per-host lock" of spec.md §5).
type Host struct {
	Identity
	Config

	SystemInfo streamwire.SystemInfo

	// Archived hosts are ignored by the duplicate resolver and lookup
	// path without special handling, per spec.md §1 Non-goals.
	Archived bool

	// PendingContextLoad mirrors RRDHOST_FLAG_PENDING_CONTEXT_LOAD: set
	// while the host's historical context is still loading, causing the
	// host binder to reject new receivers until it clears.
	PendingContextLoad bool

	// IsParent mirrors the process-wide "is parent" label spec.md §4.H
	// sets on a successful handoff: once this node has taken on at least
	// one streaming child, it is permanently labeled a parent for the
	// rest of the process's life, even if that child later disconnects.
	IsParent bool

	mu       sync.Mutex
	receiver AttachedReceiver
}

// MarkAsParent implements spec.md §4.H's "set a process-wide 'is parent'
// label" step, applied at host granularity under the host lock. Safe to
// call repeatedly; it only ever transitions false -> true.
func (h *Host) MarkAsParent() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.IsParent = true
}

// Classify reads the current receiver slot occupancy under the host
// lock. It is the sole mechanism the duplicate resolver (spec.md §4.D)
// uses to decide between "working", "stale" and "empty".
func (h *Host) Classify(now time.Time) (Occupancy, time.Duration, AttachedReceiver) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.receiver == nil {
		return Empty, 0, nil
	}
	age := now.Sub(h.receiver.LastMessageMonotonic())
	if age < StaleAfter {
		return Working, age, h.receiver
	}
	return Stale, age, h.receiver
}

// SetReceiver attaches r to the host's receiver slot if and only if it
// is currently empty. Returns false if another receiver is already
// attached (spec.md §4.F step 4 "duplicate_receiver").
func (h *Host) SetReceiver(r AttachedReceiver) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.receiver != nil {
		return false
	}
	h.receiver = r
	return true
}

// ClearReceiver detaches r from the host's receiver slot, but only if it
// is still the attached one -- guards against a stale detach racing a
// newer attachment.
func (h *Host) ClearReceiver(r AttachedReceiver) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.receiver == r {
		h.receiver = nil
	}
}

// Receiver returns the currently attached receiver, or nil.
func (h *Host) Receiver() AttachedReceiver {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.receiver
}
