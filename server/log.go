package server

import (
	"github.com/relex/gotils/logger"
)

// loggers is the three-channel logging surface spec.md §6 calls for:
// access (one line per admission decision, with status code), daemon
// (human-readable operational detail), and internal (reserved for
// deeper diagnostics the daemon channel would be too noisy to carry).
// Every line is pre-tagged with a per-connection conn_id UUID, the
// client IP and port, and its channel; withHostname adds the hostname.
// No fixed message-class identifier is attached.
type loggers struct {
	access   logger.Logger
	daemon   logger.Logger
	internal logger.Logger
}

func newLoggers(parent logger.Logger, connID, clientIP, clientPort string) loggers {
	base := parent.
		WithField("conn_id", connID).
		WithField("client_ip", clientIP).
		WithField("client_port", clientPort)
	return loggers{
		access:   base.WithField("channel", "access"),
		daemon:   base.WithField("channel", "daemon"),
		internal: base.WithField("channel", "internal"),
	}
}

// withHostname attaches the reported hostname once the handshake has
// been parsed; before that point it is simply absent from the fields.
func (l loggers) withHostname(hostname string) loggers {
	return loggers{
		access:   l.access.WithField("hostname", hostname),
		daemon:   l.daemon.WithField("hostname", hostname),
		internal: l.internal.WithField("hostname", hostname),
	}
}
