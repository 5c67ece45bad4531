package receiver

import "time"

// Snapshot is a portable, serializable view of a Receiver State for
// offline diagnostics: captured when a streaming connection ends and written
// out as msgpack records the dump tool can later decode and print,
// the same way the teacher's dump package round-trips Forward protocol
// messages through msgpack.
type Snapshot struct {
	ClientIP         string    `msgpack:"client_ip"`
	ClientPort       string    `msgpack:"client_port"`
	APIKey           string    `msgpack:"api_key"`
	MachineGUID      string    `msgpack:"machine_guid"`
	Hostname         string    `msgpack:"hostname"`
	RegistryHostname string    `msgpack:"registry_hostname"`
	OS               string    `msgpack:"os"`
	Timezone         string    `msgpack:"timezone"`
	ProgramName      string    `msgpack:"program_name"`
	ProgramVersion   string    `msgpack:"program_version"`
	Hops             int16     `msgpack:"hops"`
	Capabilities     uint32    `msgpack:"capabilities"`
	ConnectedSince   time.Time `msgpack:"connected_since"`
	ExitReason       string    `msgpack:"exit_reason"`
}

// Snapshot captures the subset of a Receiver State worth keeping around
// after the connection has ended, for later offline inspection.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		ClientIP:         s.Peer.ClientIP,
		ClientPort:       s.Peer.ClientPort,
		APIKey:           s.Identity.APIKey,
		MachineGUID:      s.Identity.MachineGUID,
		Hostname:         s.Identity.Hostname,
		RegistryHostname: s.Identity.RegistryHostname,
		OS:               s.Identity.OS,
		Timezone:         s.Identity.Timezone,
		ProgramName:      s.Identity.ProgramName,
		ProgramVersion:   s.Identity.ProgramVersion,
		Hops:             s.Identity.Hops,
		Capabilities:     uint32(s.Capabilities),
		ConnectedSince:   s.ConnectedSince,
		ExitReason:       string(s.ExitReason),
	}
}
