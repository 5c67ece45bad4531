// Package server implements the HTTP-facing acceptance core: admission,
// duplicate resolution, socket takeover, host binding, capability
// negotiation and handoff to a streaming worker (spec.md §2 control
// flow). It is deliberately the only package that touches net/http --
// everything downstream of takeover deals in plain net.Conn.
package server

import (
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/relex/gotils/logger"

	"github.com/ndstream/receiver/admission"
	"github.com/ndstream/receiver/config"
	"github.com/ndstream/receiver/metrics"
	"github.com/ndstream/receiver/protocol/streamwire"
	"github.com/ndstream/receiver/receiver"
	"github.com/ndstream/receiver/registry"
	"github.com/ndstream/receiver/util"
	"github.com/ndstream/receiver/worker"
)

// Config is the server's tunable surface (spec.md §6 "Environment/tunables").
type Config struct {
	Address          string        `help:"address to listen for streaming connections"`
	Path             string        `help:"HTTP path streaming connections arrive on"`
	RateLimit        time.Duration `help:"minimum interval between accepted streaming connections; 0 disables"`
	LocalMachineGUID string        `help:"this node's own machine identity, for same-localhost detection"`
}

// Server is the streaming connection acceptance core.
type Server struct {
	log      logger.Logger
	config   Config
	registry *registry.Registry
	configs  admission.ConfigStore
	limiter  *admission.RateLimiter
	pool     *worker.Pool

	accepting  atomic.Bool
	httpServer *http.Server
	listener   net.Listener
}

// NewServer constructs a Server without starting it; callers that only
// want to exercise ServeHTTP directly (as the test suite does) can skip
// LaunchServer entirely.
func NewServer(parentLogger logger.Logger, cfg Config, reg *registry.Registry, configs admission.ConfigStore, pool *worker.Pool) *Server {
	s := &Server{
		log:      parentLogger.WithField("component", "StreamReceiver"),
		config:   cfg,
		registry: reg,
		configs:  configs,
		limiter:  admission.NewRateLimiter(cfg.RateLimit),
		pool:     pool,
	}
	s.accepting.Store(true)
	return s
}

// LaunchServer starts a Server listening in the background, the same
// shape as the teacher's LaunchServer.
func LaunchServer(parentLogger logger.Logger, cfg Config, reg *registry.Registry, configs admission.ConfigStore, pool *worker.Pool) (*Server, net.Addr) {
	s := NewServer(parentLogger, cfg, reg, configs, pool)

	lsnr, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		s.log.Panic("listen: ", err)
	}
	s.listener = lsnr

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, s)
	s.httpServer = &http.Server{Handler: mux}

	s.log.Infof("listening for streaming connections on %s%s", lsnr.Addr(), cfg.Path)
	go func() {
		if err := s.httpServer.Serve(lsnr); err != nil && err != http.ErrServerClosed {
			s.log.Warnf("streaming listener stopped: %v", err)
		}
	}()

	return s, lsnr.Addr()
}

// Shutdown stops accepting new streaming connections and closes the
// listener. It does not drain the worker pool; callers that also own a
// *worker.Pool should Shutdown it separately once they're ready to stop
// in-flight streams too.
func (s *Server) Shutdown() {
	s.accepting.Store(false)
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
}

// AcceptingStreams reports whether the service is currently admitting
// new streaming connections (spec.md §4.C step 1).
func (s *Server) AcceptingStreams() bool { return s.accepting.Load() }

// SetAcceptingStreams toggles admission (spec.md §4.C step 1). The
// tier-backfill predicate of spec.md §4.F step 3 is separate:
// registry.Registry.SetAcceptingChildren.
func (s *Server) SetAcceptingStreams(v bool) { s.accepting.Store(v) }

// ServeHTTP implements spec.md §2's control flow end to end: parse,
// admit, resolve duplicates, take over the socket, bind the host,
// negotiate capabilities, and hand off to the worker pool.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connID := uuid.New().String()
	clientIP, clientPort, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		clientIP, clientPort = r.RemoteAddr, ""
	}
	logs := newLoggers(s.log, connID, clientIP, clientPort)

	state := receiver.New(clientIP, clientPort)

	receiver.ParseHandshake(state, r.URL.RawQuery, func(name, value string) {
		logs.daemon.Debugf("unused handshake parameter %s=%q", name, value)
	})
	state.Identity.ProgramName, state.Identity.ProgramVersion = receiver.ParseUserAgent(r.UserAgent())
	if state.Identity.Hops == 0 {
		state.Identity.Hops = 1
	}
	logs = logs.withHostname(state.Identity.Hostname)

	req := admission.Request{
		APIKey:      state.Identity.APIKey,
		Hostname:    state.Identity.Hostname,
		MachineGUID: state.Identity.MachineGUID,
		ClientIP:    net.ParseIP(clientIP),
	}
	verdict := admission.Admit(req, s.configs, s.accepting.Load())
	metrics.ObserveAdmission(verdict.Verdict.String())
	if verdict.Verdict != admission.Permit {
		logs.access.Infof("rejected: status=%d token=%s reason=%q", verdict.HTTPStatus, verdict.Token, verdict.LogReason)
		http.Error(w, verdict.Token, verdict.HTTPStatus)
		state.Free()
		return
	}

	if s.config.LocalMachineGUID != "" && state.Identity.MachineGUID == s.config.LocalMachineGUID {
		s.respondSameLocalhost(w, state, logs)
		return
	}

	if ok, retryAfter := s.limiter.TryAccept(time.Now()); !ok {
		logs.access.Infof("rejected: status=503 reason=\"rate limited, retry after %s\"", retryAfter)
		http.Error(w, fmt.Sprintf("%s (retry after %.0fs)", streamwire.ErrBusyTryLater, retryAfter.Seconds()), http.StatusServiceUnavailable)
		state.Free()
		return
	}

	dup := resolveDuplicate(s.registry, state.Identity.MachineGUID, defs.DuplicateStopWait)
	metrics.ObserveDuplicateResolution(dup.outcome.String())
	if dup.outcome == StillBusy {
		logs.access.Infof("rejected: status=409 reason=\"already streaming, age=%s stop_signaled=%v\"", dup.ageWhenChecked, dup.stopSignaled)
		http.Error(w, streamwire.ErrAlreadyStreaming, http.StatusConflict)
		state.Free()
		return
	}

	conn, err := takeoverConnection(w)
	if err != nil {
		logs.daemon.Warnf("socket takeover failed: %v", err)
		http.Error(w, streamwire.ErrInternalError, http.StatusInternalServerError)
		state.Free()
		return
	}
	state.Conn = conn

	decompressor, err := receiver.SelectDecompressor(state.Capabilities, conn)
	if err != nil {
		logs.daemon.Warnf("failed to select decompressor: %v", err)
		sendErrorToken(conn, streamwire.ErrInternalError)
		state.Free()
		return
	}
	state.Decompressor = decompressor

	host, failure := bindHost(s.registry, state)
	if failure != nil {
		metrics.ObserveRejection("bind")
		logs.daemon.Warnf("%s", failure.reason)
		sendErrorToken(conn, failure.token)
		state.Free()
		return
	}

	if err := sendInitialResponse(conn, state.Capabilities, logs); err != nil {
		metrics.ObserveRejection("negotiate")
		logs.daemon.Warnf("cant_reply: %v", err)
		host.ClearReceiver(state)
		state.Free()
		return
	}

	state.ExitReason = receiver.ExitConnected
	if err := s.pool.Enqueue(state); err != nil {
		logs.daemon.Warnf("handoff failed: %v", err)
		host.ClearReceiver(state)
		state.Free()
		return
	}

	host.MarkAsParent()
	s.registry.MarkAsParent()

	metrics.ObserveHandoff()
	logs.access.WithField("connected_since", util.TimeToUnixFloat(state.ConnectedSince)).Infof("accepted: status=200 reason=\"connected\"")
}

// respondSameLocalhost implements spec.md §4.C step 13: still requires
// takeover, because the only way to tell the child is to write the
// fixed token on the underlying TCP connection -- an HTTP status code
// can't reach it once the web framework stops owning the socket.
func (s *Server) respondSameLocalhost(w http.ResponseWriter, state *receiver.State, logs loggers) {
	conn, err := takeoverConnection(w)
	if err != nil {
		logs.daemon.Warnf("same-localhost takeover failed: %v", err)
		http.Error(w, streamwire.ErrInternalError, http.StatusInternalServerError)
		state.Free()
		return
	}
	state.Conn = conn
	sendErrorToken(conn, streamwire.ErrSameLocalhost)
	logs.access.Infof("rejected: status=200 reason=\"machine_guid is this node's own identity\"")
	state.Free()
}

// ConfigStore re-exports admission.ConfigStore and config.Store's
// satisfaction of it, so callers assembling a Server don't need to
// import admission just to name the interface.
type ConfigStore = admission.ConfigStore

var _ ConfigStore = (*config.Store)(nil)
