package streamwire

import "strconv"

// ComposeInitialResponse is a pure function of the negotiated capability
// bitset: the on-wire success prompt a receiver sends immediately after
// binding a child to a host. The branch order relies on CapVCaps being a
// superset of CapVN being a superset of CapV2 (spec.md §9 Open
// Questions); if a future capability set violates that, this table needs
// revisiting.
func ComposeInitialResponse(c Capabilities) string {
	switch {
	case c.Has(CapVCaps):
		return PromptVN + c.String()
	case c.Has(CapVN):
		return PromptVN + strconv.Itoa(ToLegacyVersion(c))
	case c.Has(CapV2):
		return PromptV2
	default:
		return PromptV1
	}
}
