package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"
)

// errNoHijack is returned when the ResponseWriter cannot be hijacked --
// notably, an HTTP/2 request, which Go's net/http intentionally refuses
// to hijack (spec.md §4.G: "unless the connection is carried over an
// alternative HTTP/2 transport").
var errNoHijack = errors.New("server: connection does not support socket takeover")

// takeoverConnection implements spec.md §4.E for idiomatic Go: instead
// of copying a raw file descriptor and TLS session out of a web client
// struct, it hijacks the underlying net.Conn from the HTTP server's
// hands entirely. The one-way fd-ownership transfer the spec describes
// maps exactly onto http.Hijacker's contract -- once hijacked, the
// standard library guarantees it will never touch the connection
// again, which is the Go equivalent of "mark the web client dead".
func takeoverConnection(w http.ResponseWriter) (net.Conn, error) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return nil, errNoHijack
	}

	conn, rw, err := hj.Hijack()
	if err != nil {
		return nil, err
	}

	if rw != nil && rw.Writer != nil {
		if err := rw.Writer.Flush(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

// sendErrorToken writes a fixed in-band error token on a taken-over
// connection, best-effort, with the 5-second send timeout spec.md §4.F
// mandates for post-takeover failures. Errors are not reported to the
// caller: by the time this runs, the Receiver State is already being
// freed regardless of whether the peer ever sees the token.
func sendErrorToken(conn net.Conn, token string) {
	_ = conn.SetWriteDeadline(time.Now().Add(defs.ErrorTokenSendTimeout))
	w := bufio.NewWriter(conn)
	_, _ = w.WriteString(token)
	_, _ = w.WriteString("\n")
	_ = w.Flush()
}
