package streamwire

import "strings"

// legacyOSAliases rewrites the pre-rename NETDATA_SYSTEM_OS_* handshake
// keys sent by older children to the NETDATA_HOST_OS_* names this
// receiver stores them under (spec.md §4.B).
var legacyOSAliases = map[string]string{
	"NETDATA_SYSTEM_OS_NAME":       "NETDATA_HOST_OS_NAME",
	"NETDATA_SYSTEM_OS_ID":         "NETDATA_HOST_OS_ID",
	"NETDATA_SYSTEM_OS_ID_LIKE":    "NETDATA_HOST_OS_ID_LIKE",
	"NETDATA_SYSTEM_OS_VERSION":    "NETDATA_HOST_OS_VERSION",
	"NETDATA_SYSTEM_OS_VERSION_ID": "NETDATA_HOST_OS_VERSION_ID",
	"NETDATA_SYSTEM_OS_DETECTION":  "NETDATA_HOST_OS_DETECTION",
}

// RewriteLegacyKey applies the NETDATA_SYSTEM_OS_* -> NETDATA_HOST_OS_*
// alias, returning the input unchanged if it is not one of the aliased
// names.
func RewriteLegacyKey(name string) string {
	if renamed, ok := legacyOSAliases[name]; ok {
		return renamed
	}
	return name
}

// SystemInfo is the free-form key/value bag of host metadata collected
// during handshake parsing. Once passed to the host binder its ownership
// transfers to the host; the acceptance flow must not read or mutate it
// afterward (spec.md §3 invariant).
type SystemInfo map[string]string

// NewSystemInfo allocates an empty bag.
func NewSystemInfo() SystemInfo {
	return make(SystemInfo)
}

// Set stores a handshake parameter into the bag, applying the legacy
// alias rewrite. It reports whether the name was recognized: only
// NETDATA_-prefixed keys are considered meaningful system-info variables
// by this receiver, mirroring the original's internal allow-list
// (rrdhost_set_system_info_variable). Unrecognized names are still
// stored (the child may be running a newer agent with fields this
// receiver does not understand yet), but the caller logs them as
// "unused" per spec.md §4.B.
func (si SystemInfo) Set(name, value string) (used bool) {
	name = RewriteLegacyKey(name)
	si[name] = value
	return strings.HasPrefix(name, "NETDATA_")
}
