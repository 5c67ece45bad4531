package receiver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndstream/receiver/protocol/streamwire"
)

func TestParseHandshakeBasicFields(t *testing.T) {
	s := New("1.2.3.4", "51234")
	var unused []string
	ParseHandshake(s, "key=apikey&hostname=myhost&machine_guid=guid-1&os=linux&ver=8", func(name, value string) {
		unused = append(unused, name)
	})

	assert.Equal(t, "apikey", s.Identity.APIKey)
	assert.Equal(t, "myhost", s.Identity.Hostname)
	assert.Equal(t, "guid-1", s.Identity.MachineGUID)
	assert.Equal(t, "linux", s.Identity.OS)
	assert.Equal(t, "myhost", s.Identity.RegistryHostname, "registry hostname defaults to hostname")
	assert.False(t, s.Capabilities.IsInvalid())
	assert.Empty(t, unused)
}

func TestParseHandshakeFirstOccurrenceWinsForIdentity(t *testing.T) {
	s := New("1.2.3.4", "51234")
	ParseHandshake(s, "hostname=first&hostname=second&key=k1&key=k2&machine_guid=m1&machine_guid=m2", nil)

	assert.Equal(t, "first", s.Identity.Hostname)
	assert.Equal(t, "k1", s.Identity.APIKey)
	assert.Equal(t, "m1", s.Identity.MachineGUID)
}

func TestParseHandshakeLastWinsForNonIdentityFields(t *testing.T) {
	s := New("1.2.3.4", "51234")
	ParseHandshake(s, "utc_offset=100&utc_offset=200", nil)

	assert.EqualValues(t, 200, s.Identity.UTCOffset)
}

func TestParseHandshakeDefaultsCapabilitiesWhenAbsent(t *testing.T) {
	s := New("1.2.3.4", "51234")
	ParseHandshake(s, "key=k&hostname=h&machine_guid=m", nil)
	assert.False(t, s.Capabilities.IsInvalid())
}

func TestParseHandshakeLegacyProtocolVersion(t *testing.T) {
	s := New("1.2.3.4", "51234")
	ParseHandshake(s, "key=k&NETDATA_PROTOCOL_VERSION=1", nil)
	assert.False(t, s.Capabilities.IsInvalid())
}

func TestParseHandshakeVerWinsOverLegacyWhenFirst(t *testing.T) {
	s := New("1.2.3.4", "51234")
	// ver appears first in the query and sets capabilities; the legacy
	// alias later in the string must not override it.
	ParseHandshake(s, "ver=2&NETDATA_PROTOCOL_VERSION=1", nil)
	assert.True(t, s.Capabilities.Has(streamwire.CapV2))
}

func TestParseHandshakeLegacyOSAliasRewrite(t *testing.T) {
	s := New("1.2.3.4", "51234")
	ParseHandshake(s, "NETDATA_SYSTEM_OS_NAME=ubuntu", nil)
	assert.Equal(t, "ubuntu", s.SystemInfo["NETDATA_HOST_OS_NAME"])
	_, stillPresent := s.SystemInfo["NETDATA_SYSTEM_OS_NAME"]
	assert.False(t, stillPresent)
}

func TestParseHandshakeUnknownParamReportedUnused(t *testing.T) {
	s := New("1.2.3.4", "51234")
	var gotName, gotValue string
	ParseHandshake(s, "random_param=random_value", func(name, value string) {
		gotName, gotValue = name, value
	})
	assert.Equal(t, "random_param", gotName)
	assert.Equal(t, "random_value", gotValue)
	assert.Equal(t, "random_value", s.SystemInfo["random_param"])
}

func TestParseHandshakeSkipsEmptyAndMalformedPairs(t *testing.T) {
	s := New("1.2.3.4", "51234")
	ParseHandshake(s, "&&key=&&=value&&hostname=h&&", nil)
	assert.Equal(t, "", s.Identity.APIKey)
	assert.Equal(t, "h", s.Identity.Hostname)
}

func TestParseUserAgent(t *testing.T) {
	name, version := ParseUserAgent("netdata/1.40.0")
	assert.Equal(t, "netdata", name)
	assert.Equal(t, "1.40.0", version)

	name, version = ParseUserAgent("nothing-here")
	assert.Equal(t, "nothing-here", name)
	assert.Equal(t, "", version)

	name, version = ParseUserAgent("")
	assert.Equal(t, "", name)
	assert.Equal(t, "", version)
}
