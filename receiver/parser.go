package receiver

import (
	"strconv"
	"strings"
	"time"

	"github.com/ndstream/receiver/protocol/streamwire"
)

// UnusedParamFunc is called once per handshake parameter streamwire's
// system-info bag did not recognize (spec.md §4.B "logged as unused").
type UnusedParamFunc func(name, value string)

// ParseHandshake decodes a URL-decoded handshake query string into s,
// applying first-occurrence-wins semantics to the identity fields
// (spec.md §8 property 8) while letting every other recognized field
// take its last occurrence -- preserving the original's accidental but
// observed behavior (SPEC_FULL.md §9 Open Question 2). The exception is
// ver, which only applies while capabilities are still unresolved, so
// its first occurrence wins.
//
// rawQuery must already be URL-decoded; this function only splits on
// "&" and "=", collapsing consecutive separators exactly as the
// original strsep-based parser does.
func ParseHandshake(s *State, rawQuery string, onUnused UnusedParamFunc) {
	for _, pair := range splitSkipEmpty(rawQuery, "&") {
		name, value, ok := splitOnce(pair, "=")
		if !ok || name == "" || value == "" {
			continue
		}

		switch name {
		case "key":
			if s.Identity.APIKey == "" {
				s.Identity.APIKey = value
			}
		case "hostname":
			if s.Identity.Hostname == "" {
				s.Identity.Hostname = value
			}
		case "registry_hostname":
			if s.Identity.RegistryHostname == "" {
				s.Identity.RegistryHostname = value
			}
		case "machine_guid":
			if s.Identity.MachineGUID == "" {
				s.Identity.MachineGUID = value
			}
		case "update_every":
			if v, err := strconv.ParseUint(value, 10, 32); err == nil {
				s.Config.UpdateEvery = time.Duration(v) * time.Second
			}
		case "os":
			if s.Identity.OS == "" {
				s.Identity.OS = value
			}
		case "timezone":
			if s.Identity.Timezone == "" {
				s.Identity.Timezone = value
			}
		case "abbrev_timezone":
			if s.Identity.AbbrevTimezone == "" {
				s.Identity.AbbrevTimezone = value
			}
		case "utc_offset":
			if v, err := strconv.ParseInt(value, 10, 32); err == nil {
				s.Identity.UTCOffset = int32(v)
			}
		case "hops":
			if v, err := strconv.ParseInt(value, 10, 16); err == nil {
				s.Identity.Hops = int16(v)
				s.SystemInfo.Set("hops", value)
			}
		case "ml_capable", "ml_enabled", "mc_version":
			if _, err := strconv.ParseUint(value, 10, 64); err == nil {
				s.SystemInfo.Set(name, value)
			}
		case "ver":
			if s.Capabilities.IsInvalid() {
				if v, err := strconv.ParseUint(value, 10, 64); err == nil {
					s.Capabilities = streamwire.FromVersionParam(v)
				}
			}
		default:
			if name == "NETDATA_PROTOCOL_VERSION" && s.Capabilities.IsInvalid() {
				s.Capabilities = streamwire.FromVersionParam(1)
				continue
			}
			if used := s.SystemInfo.Set(name, value); !used && onUnused != nil {
				onUnused(name, value)
			}
		}
	}

	if s.Capabilities.IsInvalid() {
		s.Capabilities = streamwire.FromVersionParam(0)
	}
	if s.Identity.RegistryHostname == "" {
		s.Identity.RegistryHostname = s.Identity.Hostname
	}
}

// ParseUserAgent splits a User-Agent header on the first "/" into
// program name and program version, as the original web_client handling
// does.
func ParseUserAgent(userAgent string) (name, version string) {
	if userAgent == "" {
		return "", ""
	}
	name, version, found := strings.Cut(userAgent, "/")
	if !found {
		return userAgent, ""
	}
	return name, version
}

// splitSkipEmpty splits s on sep, dropping empty fields -- the Go
// equivalent of strsep_skip_consecutive_separators.
func splitSkipEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitOnce splits a "name=value" pair on the first "=" only. It
// reports ok=false if sep does not appear at all, matching strsep's
// NULL-on-not-found behavior (the original then skips the pair
// entirely).
func splitOnce(s, sep string) (name, value string, ok bool) {
	name, value, found := strings.Cut(s, sep)
	if !found {
		return "", "", false
	}
	return name, value, true
}
