package server

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ndstream/receiver/protocol/streamwire"
)

// sendInitialResponse implements spec.md §4.G: compose the capability
// negotiation response as a pure function of the bitset, widen the
// receive timeout to its steady-state value, and write the response
// under a 60-second send deadline. Widening the receive timeout is
// logged but non-fatal on failure; a short write of the response itself
// is reported so the caller can treat it as the "cant_reply" failure
// the spec names.
func sendInitialResponse(conn net.Conn, caps streamwire.Capabilities, logs loggers) error {
	if err := conn.SetReadDeadline(time.Now().Add(defs.ReceiveTimeout)); err != nil {
		logs.daemon.Warnf("failed to widen receive timeout before negotiation: %v", err)
	}

	token := streamwire.ComposeInitialResponse(caps)
	payload := token + "\n"

	if err := conn.SetWriteDeadline(time.Now().Add(defs.SendTimeout)); err != nil {
		return fmt.Errorf("set send timeout: %w", err)
	}

	n, err := io.WriteString(conn, payload)
	if err != nil {
		return fmt.Errorf("write initial response: %w", err)
	}
	if n < len(payload) {
		return fmt.Errorf("short write of initial response: wrote %d of %d bytes", n, len(payload))
	}
	return nil
}
