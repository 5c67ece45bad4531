// Package receiver implements the Receiver State value object (spec.md
// §3/§4.A): everything the acceptance core accumulates about one
// incoming connection from the moment it is accepted until it is either
// rejected or handed off to a streaming worker.
package receiver

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ndstream/receiver/protocol/streamwire"
)

// CompressedChunkSize is the fixed size of the per-connection compressed
// read buffer allocated at construction (spec.md §4.A).
const CompressedChunkSize = 64 * 1024

// allocatedBytes is the process-wide counter of bytes currently charged
// to live Receiver States (the "rrdhost_allocations_size" atomic counter
// of spec.md §5). It uses relaxed atomics, same as the original.
var allocatedBytes atomic.Int64

// AllocatedBytes reports the current total, for diagnostics/metrics.
func AllocatedBytes() int64 {
	return allocatedBytes.Load()
}

// ExitReason is the enumerated handshake/connection outcome recorded for
// logging (spec.md §3 "Exit reason").
type ExitReason string

const (
	ExitNever                   ExitReason = "never"
	ExitDisconnectStaleReceiver ExitReason = "disconnect_stale_receiver"
	ExitConnected               ExitReason = "connected"
)

// Peer holds the client address strings captured at accept time.
type Peer struct {
	ClientIP   string
	ClientPort string
}

// Identity is the set of child-reported identifying fields from the
// handshake (spec.md §3 "Identity").
type Identity struct {
	APIKey           string
	MachineGUID      string
	Hostname         string
	RegistryHostname string
	OS               string
	Timezone         string
	AbbrevTimezone   string
	UTCOffset        int32
	ProgramName      string
	ProgramVersion   string
	Hops             int16
}

// Config is the per-connection configuration snapshot the host binder
// hands to the registry (spec.md §3); server/bind.go translates it field
// by field into a registry.Config. The acceptance flow does not fill it
// from the stream.conf store: apart from UpdateEvery, which the
// handshake parser sets from update_every, its fields keep their zero
// values.
type Config struct {
	UpdateEvery time.Duration
	History     int
	MemoryMode  string
	Health      int // 0=auto,1=on,2=off; mirrors registry.HealthMode
	Ephemeral   bool

	SendEnabled bool
	SendParents []string
	SendAPIKey  string
	SendCharts  string

	ReplicationEnabled bool
	ReplicationPeriod  time.Duration
	ReplicationStep    time.Duration
}

// State is one Receiver State: exclusively owned by the acceptance flow
// until handoff, at which point ownership transfers to the streaming
// worker (spec.md §3 Lifecycle).
type State struct {
	Conn net.Conn // nil until socket takeover (spec.md §3 invariant 2)

	Peer     Peer
	Identity Identity
	Config   Config

	Capabilities streamwire.Capabilities

	// SystemInfo is nil once ownership has transferred to the host
	// binder (spec.md §3 invariant 3); callers must check for nil
	// before touching it post-bind.
	SystemInfo streamwire.SystemInfo

	ConnectedSince       time.Time
	lastMessageMonotonic atomic.Value // time.Time
	ExitReason           ExitReason

	Decompressor    Decompressor
	CompressedChunk []byte

	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}
}

// New allocates a zeroed Receiver State the way the original's
// callocz(1, sizeof(*rpt)) does, pre-sizing the compressed buffer and
// charging the process-wide byte counter.
func New(clientIP, clientPort string) *State {
	allocatedBytes.Add(CompressedChunkSize)

	now := time.Now()
	s := &State{
		Peer:            Peer{ClientIP: clientIP, ClientPort: clientPort},
		Capabilities:    streamwire.CapInvalid,
		SystemInfo:      streamwire.NewSystemInfo(),
		ConnectedSince:  now,
		ExitReason:      ExitNever,
		CompressedChunk: make([]byte, CompressedChunkSize),
		stopCh:          make(chan struct{}),
		stopped:         make(chan struct{}),
	}
	s.lastMessageMonotonic.Store(now)
	return s
}

// Free releases everything a Receiver State owns: the socket, the
// decompressor, and the byte accounting. Unlike the C original there is
// no manual memory to release for strings/maps -- the garbage collector
// reclaims those -- but the allocation counter and the socket still need
// explicit teardown, and SystemInfo must not outlive a failed bind.
func (s *State) Free() {
	if s.Conn != nil {
		_ = s.Conn.Close()
		s.Conn = nil
	}
	if s.Decompressor != nil {
		_ = s.Decompressor.Close()
		s.Decompressor = nil
	}
	s.SystemInfo = nil
	allocatedBytes.Add(-CompressedChunkSize)
}

// Touch records that a message was just seen on this connection,
// advancing the monotonic clock the duplicate resolver reads.
func (s *State) Touch() {
	s.lastMessageMonotonic.Store(time.Now())
}

// LastMessageMonotonic implements registry.AttachedReceiver.
func (s *State) LastMessageMonotonic() time.Time {
	return s.lastMessageMonotonic.Load().(time.Time)
}

// RequestStop implements registry.AttachedReceiver: it asks whatever
// owns this connection's read loop to stop, recording why. Safe to call
// more than once; only the first call's reason sticks.
func (s *State) RequestStop(reason string) {
	s.stopOnce.Do(func() {
		s.ExitReason = ExitReason(reason)
		close(s.stopCh)
	})
}

// StopRequested is closed once RequestStop has been called.
func (s *State) StopRequested() <-chan struct{} {
	return s.stopCh
}

// MarkStopped implements registry.AttachedReceiver's other half: the
// streaming worker calls this once its read loop has actually exited, so
// that a concurrent duplicate resolver waiting on Stopped() unblocks.
func (s *State) MarkStopped() {
	select {
	case <-s.stopped:
	default:
		close(s.stopped)
	}
}

// Stopped implements registry.AttachedReceiver.
func (s *State) Stopped() <-chan struct{} {
	return s.stopped
}
