package worker

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/relex/gotils/logger"

	"github.com/ndstream/receiver/receiver"
)

// readPollInterval bounds how long DefaultConsume blocks in a single
// Read before re-checking for a stop request, so a duplicate resolver's
// RequestStop is honored promptly even while the child is silent.
const readPollInterval = time.Second

// DefaultConsume is the minimal stand-in stream decoder: it drains
// bytes off the handed-off connection (through the negotiated
// decompressor, if any), touching the Receiver State's last-message
// clock on every read, until the connection errors, the peer closes it,
// or a duplicate resolver calls RequestStop. Framing and parsing the
// streamed payload itself is out of scope (spec.md §2).
//
// If sink is non-nil, the Receiver State's Snapshot is persisted to it
// once the connection has ended, so the dump CLI has something to read.
func DefaultConsume(log logger.Logger, sink SnapshotSink) ConsumeFunc {
	return func(s *receiver.State) {
		defer func() {
			if sink != nil {
				sink.Persist(s.Snapshot())
			}
		}()
		defer s.MarkStopped()
		defer s.Free()

		var src io.Reader = s.Conn
		if s.Decompressor != nil {
			src = s.Decompressor
		}

		readBuf := make([]byte, 32*1024)

		for {
			select {
			case <-s.StopRequested():
				log.Infof("host '%s': stopping stream consumer (%s)", s.Identity.Hostname, s.ExitReason)
				return
			default:
			}

			if err := s.Conn.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
				log.Infof("host '%s': failed to set read deadline: %v", s.Identity.Hostname, err)
			}

			n, err := src.Read(readBuf)
			if n > 0 {
				s.Touch()
			}
			if err != nil {
				if isTimeout(err) {
					continue
				}
				if errors.Is(err, io.EOF) {
					log.Infof("host '%s': streaming connection closed by peer", s.Identity.Hostname)
				} else {
					log.Infof("host '%s': streaming connection ended: %v", s.Identity.Hostname, err)
				}
				return
			}
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
