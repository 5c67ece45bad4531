package streamwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeInitialResponse(t *testing.T) {
	cases := []struct {
		name string
		caps Capabilities
		want string
	}{
		{"vcaps wins", CapVCaps | CapVN | CapV2 | CapV1, PromptVN + (CapVCaps | CapVN | CapV2 | CapV1).String()},
		{"vn without vcaps, v2 present", CapVN | CapV2, PromptVN + "2"},
		{"vn without vcaps, v1 only", CapVN | CapV1, PromptVN + "1"},
		{"v2 only", CapV2, PromptV2},
		{"v1 only", CapV1, PromptV1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ComposeInitialResponse(c.caps))
		})
	}
}

func TestFromVersionParam(t *testing.T) {
	assert.Equal(t, CapV1, FromVersionParam(0))
	assert.Equal(t, CapV1, FromVersionParam(1))
	assert.Equal(t, CapV2, FromVersionParam(2))
	assert.Equal(t, CapV2, FromVersionParam(8))

	withCaps := uint64(CapVCaps | CapV2 | CapZstd)
	got := FromVersionParam(withCaps)
	assert.True(t, got.Has(CapVCaps))
	assert.True(t, got.Has(CapV2))
	assert.True(t, got.Has(CapZstd))
}

func TestCapabilitiesNeverInvalidAfterResolution(t *testing.T) {
	c := CapInvalid
	assert.True(t, c.IsInvalid())
	resolved := FromVersionParam(0)
	assert.False(t, resolved.IsInvalid())
}

func TestRewriteLegacyKey(t *testing.T) {
	assert.Equal(t, "NETDATA_HOST_OS_NAME", RewriteLegacyKey("NETDATA_SYSTEM_OS_NAME"))
	assert.Equal(t, "SOMETHING_ELSE", RewriteLegacyKey("SOMETHING_ELSE"))
}

func TestSystemInfoSet(t *testing.T) {
	si := NewSystemInfo()
	used := si.Set("NETDATA_SYSTEM_OS_NAME", "ubuntu")
	assert.True(t, used)
	assert.Equal(t, "ubuntu", si["NETDATA_HOST_OS_NAME"])

	used = si.Set("some_random_param", "1")
	assert.False(t, used)
	assert.Equal(t, "1", si["some_random_param"])
}
