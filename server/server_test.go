package server

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/relex/gotils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndstream/receiver/config"
	"github.com/ndstream/receiver/protocol/streamwire"
	"github.com/ndstream/receiver/receiver"
	"github.com/ndstream/receiver/registry"
	"github.com/ndstream/receiver/worker"
)

// fakeConfigStore is wide open: every key/identity is unconfigured
// (thus permitted) and every IP is allowed. Every test here uses it
// unchanged.
type fakeConfigStore struct{}

func (fakeConfigStore) KeyType(string) config.KeyType    { return config.KeyTypeUnknown }
func (fakeConfigStore) Enabled(string, bool) bool        { return true }
func (fakeConfigStore) AllowsClient(string, net.IP) bool { return true }

func newTestServer(t *testing.T, localGUID string) (*httptest.Server, chan *receiver.State) {
	t.Helper()
	log := logger.WithField("test", t.Name())
	reg := registry.NewRegistry()
	handoff := make(chan *receiver.State, 10)
	pool := worker.NewPool(2, 8, func(s *receiver.State) { handoff <- s }, log)
	t.Cleanup(pool.Shutdown)

	srv := NewServer(log, Config{LocalMachineGUID: localGUID}, reg, fakeConfigStore{}, pool)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, handoff
}

func streamPath(apiKey, hostname, guid, extra string) string {
	return fmt.Sprintf("/?key=%s&hostname=%s&machine_guid=%s&os=linux%s", apiKey, hostname, guid, extra)
}

// rawStreamRequest sends a minimal HTTP/1.1 GET over a raw TCP dial and
// returns the connection plus the first line written back to it. Real
// streaming children aren't generic HTTP clients either: once the
// server hijacks, whatever it writes on the wire is no longer a valid
// HTTP response, so http.Client can't be used to read it back.
func rawStreamRequest(t *testing.T, addr, path string) (net.Conn, string) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: test\r\nUser-Agent: netdata/1.40.0\r\n\r\n", path)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return conn, strings.TrimRight(line, "\r\n")
}

// TestScenarioS1MissingKeyDenied covers spec.md §8 scenario S1.
func TestScenarioS1MissingKeyDenied(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/?hostname=h&machine_guid=" + uuid.New().String())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestScenarioS2SuccessfulHandoff covers spec.md §8 scenario S2, using a
// VCAPS-bearing ver value to exercise the VN+bitset response branch.
func TestScenarioS2SuccessfulHandoff(t *testing.T) {
	ts, handoff := newTestServer(t, "")
	apiKey := uuid.New().String()
	guid := uuid.New().String()

	verBits := streamwire.CapVCaps | streamwire.CapVN | streamwire.CapV2 | streamwire.CapV1
	path := streamPath(apiKey, "child1", guid, fmt.Sprintf("&ver=%d", verBits))

	_, line := rawStreamRequest(t, ts.Listener.Addr().String(), path)
	assert.True(t, strings.HasPrefix(line, streamwire.PromptVN), "expected VN prompt, got %q", line)

	select {
	case s := <-handoff:
		assert.Equal(t, "child1", s.Identity.Hostname)
		assert.Equal(t, apiKey, s.Identity.APIKey)
		assert.Equal(t, guid, s.Identity.MachineGUID)
		assert.True(t, s.Capabilities.Has(streamwire.CapVCaps))
		assert.Equal(t, receiver.ExitConnected, s.ExitReason)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver state was never handed off")
	}
}

// TestScenarioS3DuplicateConnectionRejected covers spec.md §8 scenario
// S3: a second connection for the same machine_guid while the first is
// still attached and fresh is rejected with 409.
func TestScenarioS3DuplicateConnectionRejected(t *testing.T) {
	ts, handoff := newTestServer(t, "")
	apiKey := uuid.New().String()
	guid := uuid.New().String()

	path := streamPath(apiKey, "child1", guid, "&ver=8")
	_, _ = rawStreamRequest(t, ts.Listener.Addr().String(), path)

	select {
	case <-handoff:
	case <-time.After(2 * time.Second):
		t.Fatal("first connection never handed off")
	}

	resp, err := http.Get(ts.URL + streamPath(apiKey, "child1-again", guid, "&ver=8"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// fakeStaleReceiver is a registry.AttachedReceiver test double standing
// in for a previous connection whose last message is old enough to be
// classified stale. RequestStop closes stopped immediately, simulating
// a previous receiver that cooperates promptly once signaled.
type fakeStaleReceiver struct {
	lastMsg    time.Time
	stopReason chan string
	stopped    chan struct{}
}

func newFakeStaleReceiver(age time.Duration) *fakeStaleReceiver {
	return &fakeStaleReceiver{
		lastMsg:    time.Now().Add(-age),
		stopReason: make(chan string, 1),
		stopped:    make(chan struct{}),
	}
}

func (f *fakeStaleReceiver) LastMessageMonotonic() time.Time { return f.lastMsg }

func (f *fakeStaleReceiver) RequestStop(reason string) {
	select {
	case f.stopReason <- reason:
	default:
	}
	close(f.stopped)
}

func (f *fakeStaleReceiver) Stopped() <-chan struct{} { return f.stopped }

// TestScenarioS4StaleReceiverPreempted covers spec.md §8 scenario S4: a
// previous receiver attached to the same machine_guid whose last message
// is older than registry.StaleAfter (30s) is signaled to stop, and the
// new connection proceeds to handoff once it has confirmed stopping.
func TestScenarioS4StaleReceiverPreempted(t *testing.T) {
	log := logger.WithField("test", t.Name())
	reg := registry.NewRegistry()
	handoff := make(chan *receiver.State, 10)
	pool := worker.NewPool(2, 8, func(s *receiver.State) { handoff <- s }, log)
	t.Cleanup(pool.Shutdown)

	srv := NewServer(log, Config{}, reg, fakeConfigStore{}, pool)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	apiKey := uuid.New().String()
	guid := uuid.New().String()

	stale := newFakeStaleReceiver(45 * time.Second)
	host := reg.FindOrCreate(registry.Identity{MachineGUID: guid, Hostname: "child1"}, registry.Config{}, nil)
	require.True(t, host.SetReceiver(stale))

	path := streamPath(apiKey, "child1", guid, "&ver=8")
	_, line := rawStreamRequest(t, ts.Listener.Addr().String(), path)
	assert.Equal(t, streamwire.PromptV2, line)

	select {
	case reason := <-stale.stopReason:
		assert.Equal(t, string(receiver.ExitDisconnectStaleReceiver), reason)
	case <-time.After(2 * time.Second):
		t.Fatal("stale receiver was never signaled to stop")
	}

	select {
	case s := <-handoff:
		assert.Equal(t, guid, s.Identity.MachineGUID)
	case <-time.After(2 * time.Second):
		t.Fatal("second connection never reached handoff after stale preemption")
	}
}

// TestScenarioS5SameLocalhost covers spec.md §8 scenario S5.
func TestScenarioS5SameLocalhost(t *testing.T) {
	guid := uuid.New().String()
	ts, _ := newTestServer(t, guid)
	apiKey := uuid.New().String()

	path := streamPath(apiKey, "child1", guid, "&ver=8")
	_, line := rawStreamRequest(t, ts.Listener.Addr().String(), path)

	assert.Equal(t, streamwire.ErrSameLocalhost, line)
}

// TestScenarioS6LegacyProtocolVersion covers spec.md §8 scenario S6.
func TestScenarioS6LegacyProtocolVersion(t *testing.T) {
	ts, handoff := newTestServer(t, "")
	apiKey := uuid.New().String()
	guid := uuid.New().String()

	path := streamPath(apiKey, "child1", guid, "&NETDATA_PROTOCOL_VERSION=1")
	_, line := rawStreamRequest(t, ts.Listener.Addr().String(), path)

	assert.Equal(t, streamwire.PromptV1, line)

	select {
	case s := <-handoff:
		assert.True(t, s.Capabilities.Has(streamwire.CapV1))
		assert.False(t, s.Capabilities.Has(streamwire.CapV2))
	case <-time.After(2 * time.Second):
		t.Fatal("receiver state was never handed off")
	}
}
