package server

import "time"

// defs mirrors the teacher's per-server tunable-constants block: fixed
// timeouts the spec pins down as design values rather than per-request
// configuration (spec.md §4.G, §5).
var defs = struct {
	ReceiveTimeout        time.Duration
	SendTimeout           time.Duration
	ErrorTokenSendTimeout time.Duration
	DuplicateStopWait     time.Duration
}{
	ReceiveTimeout:        600 * time.Second,
	SendTimeout:           60 * time.Second,
	ErrorTokenSendTimeout: 5 * time.Second,
	DuplicateStopWait:     10 * time.Second,
}
