// Package admission implements the ordered validation and rate-limiting
// rules a streaming connection must pass before it is allowed to take
// over its socket (spec.md §4.C). Every rejection maps to one of exactly
// two HTTP responses, by design: differentiating an attacker's probe
// from a legitimate misconfiguration happens only in logs, never in the
// wire response (spec.md §8 property 1).
package admission

import (
	"net"

	"github.com/google/uuid"

	"github.com/ndstream/receiver/config"
	"github.com/ndstream/receiver/protocol/streamwire"
)

// ConfigStore is the subset of the stream.conf store the admission gate
// consults. config.Store satisfies it directly.
type ConfigStore interface {
	KeyType(id string) config.KeyType
	Enabled(id string, isMachine bool) bool
	AllowsClient(id string, clientIP net.IP) bool
}

// Verdict is the outcome of running the admission gate.
type Verdict int

const (
	// Permit means every ordered check passed.
	Permit Verdict = iota
	// Denied means a permission/credential check failed; always
	// reported with streamwire.ErrNotPermitted / HTTP 401.
	Denied
	// Busy means the service cannot accept the connection right now;
	// always reported with streamwire.ErrBusyTryLater / HTTP 503.
	Busy
)

// String renders the verdict for structured logs and metric labels.
func (v Verdict) String() string {
	switch v {
	case Permit:
		return "permit"
	case Denied:
		return "denied"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Request is the minimal set of handshake-derived fields the gate needs.
type Request struct {
	APIKey      string
	Hostname    string
	MachineGUID string
	ClientIP    net.IP
}

// Result carries the verdict plus the uniform wire token/status and a
// detailed reason for structured logs only (spec.md §8 property 1).
type Result struct {
	Verdict    Verdict
	Token      string
	HTTPStatus int
	LogReason  string
}

func denied(reason string) Result {
	return Result{Verdict: Denied, Token: streamwire.ErrNotPermitted, HTTPStatus: 401, LogReason: reason}
}

func busy(reason string) Result {
	return Result{Verdict: Busy, Token: streamwire.ErrBusyTryLater, HTTPStatus: 503, LogReason: reason}
}

func permit() Result {
	return Result{Verdict: Permit}
}

// Admit runs the ordered checks of spec.md §4.C steps 1-12. Steps 13
// (same-localhost) and 14 (rate limit) are not part of this function
// because they require takeover/rate-limiter state the gate itself does
// not own; see server.(*Server).ServeHTTP for where they slot into the
// pipeline.
func Admit(req Request, cfg ConfigStore, serviceRunning bool) Result {
	if !serviceRunning {
		return busy("service is not currently accepting streaming connections")
	}
	if req.APIKey == "" {
		return denied("request without an API key")
	}
	if req.Hostname == "" {
		return denied("request without a hostname")
	}
	if req.MachineGUID == "" {
		return denied("request without a machine UUID")
	}
	if _, err := uuid.Parse(req.APIKey); err != nil {
		return denied("API key is not a valid UUID")
	}
	if _, err := uuid.Parse(req.MachineGUID); err != nil {
		return denied("machine UUID is not a valid UUID")
	}
	if !isConfiguredAs(cfg, req.APIKey, config.KeyTypeAPI) {
		return denied("API key provided is a machine UUID (did you mix them up?)")
	}
	if !cfg.Enabled(req.APIKey, false) {
		return denied("API key is not enabled in stream.conf")
	}
	if !cfg.AllowsClient(req.APIKey, req.ClientIP) {
		return denied("API key is not allowed from this IP")
	}
	if !isConfiguredAs(cfg, req.MachineGUID, config.KeyTypeMachine) {
		return denied("machine UUID is an API key (did you mix them up?)")
	}
	if !cfg.Enabled(req.MachineGUID, true) {
		return denied("machine UUID is not enabled in stream.conf")
	}
	if !cfg.AllowsClient(req.MachineGUID, req.ClientIP) {
		return denied("machine UUID is not allowed from this IP")
	}
	return permit()
}

// isConfiguredAs reports whether id is acceptable as kind: either it is
// explicitly configured as kind, or it is not configured at all (the
// common case for machine identities, which are rarely listed in
// stream.conf up front). It only rejects an id explicitly configured as
// the *other* kind.
func isConfiguredAs(cfg ConfigStore, id string, kind config.KeyType) bool {
	t := cfg.KeyType(id)
	if t == config.KeyTypeUnknown {
		return true
	}
	return t == kind
}
