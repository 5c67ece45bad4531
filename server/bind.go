package server

import (
	"github.com/ndstream/receiver/protocol/streamwire"
	"github.com/ndstream/receiver/receiver"
	"github.com/ndstream/receiver/registry"
)

// bindFailure carries the in-band token to write on the taken-over
// socket plus a human reason for the daemon log (spec.md §4.F).
type bindFailure struct {
	token  string
	reason string
}

// bindHost implements spec.md §4.F's host binder. It is only called
// once the connection has been taken over, which is why every failure
// path returns a wire token instead of an HTTP status.
//
// The system-info ownership transfer is a binding invariant (spec.md
// §3, §8 property 3): state.SystemInfo is nilled immediately after
// registry.FindOrCreate returns non-nil, before any of the later checks
// run, exactly where the original nils the pointer right after its
// equivalent non-null check.
func bindHost(reg *registry.Registry, state *receiver.State) (*registry.Host, *bindFailure) {
	identity := registry.Identity{
		Hostname:         state.Identity.Hostname,
		RegistryHostname: state.Identity.RegistryHostname,
		MachineGUID:      state.Identity.MachineGUID,
		OS:               state.Identity.OS,
		Timezone:         state.Identity.Timezone,
		AbbrevTimezone:   state.Identity.AbbrevTimezone,
		UTCOffset:        state.Identity.UTCOffset,
		ProgramName:      state.Identity.ProgramName,
		ProgramVersion:   state.Identity.ProgramVersion,
	}
	cfg := registry.Config{
		UpdateEvery: state.Config.UpdateEvery,
		History:     state.Config.History,
		MemoryMode:  registry.MemoryMode(state.Config.MemoryMode),
		Health:      registry.HealthMode(state.Config.Health),
		Send: registry.ForwardConfig{
			Enabled:        state.Config.SendEnabled,
			Parents:        state.Config.SendParents,
			APIKey:         state.Config.SendAPIKey,
			ChartsFiltered: state.Config.SendCharts,
		},
		Replication: registry.ReplicationConfig{
			Enabled: state.Config.ReplicationEnabled,
			Period:  state.Config.ReplicationPeriod,
			Step:    state.Config.ReplicationStep,
		},
		Ephemeral: state.Config.Ephemeral,
	}

	host := reg.FindOrCreate(identity, cfg, state.SystemInfo)
	if host == nil {
		return nil, &bindFailure{token: streamwire.ErrInternalError, reason: "internal_server_error: find_or_create returned nil"}
	}
	state.SystemInfo = nil

	if host.PendingContextLoad {
		return nil, &bindFailure{token: streamwire.ErrInitialization, reason: "initialization: host context still loading"}
	}
	if !reg.AcceptingChildren() {
		return nil, &bindFailure{token: streamwire.ErrInitialization, reason: "initialization: registry not yet accepting children"}
	}
	if !host.SetReceiver(state) {
		return nil, &bindFailure{token: streamwire.ErrAlreadyStreaming, reason: "duplicate_receiver: another receiver attached meanwhile"}
	}

	return host, nil
}
