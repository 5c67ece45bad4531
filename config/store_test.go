package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConf = `
[11111111-1111-1111-1111-111111111111]
    type = api
    enabled = yes
    allow from = 10.0.0.0/8 203.0.113.9

[22222222-2222-2222-2222-222222222222]
    type = machine
    update every = 5
    history = 7200
    memory mode = dbengine
    health enabled = no
    stream = yes
    destination = 10.1.1.1:19999
    api key = 33333333-3333-3333-3333-333333333333
    ephemeral = yes
`

func loadSample(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.conf")
	require.NoError(t, os.WriteFile(path, []byte(sampleConf), 0o600))
	s, err := Load(path)
	require.NoError(t, err)
	return s
}

func TestKeyType(t *testing.T) {
	s := loadSample(t)
	assert.Equal(t, KeyTypeAPI, s.KeyType("11111111-1111-1111-1111-111111111111"))
	assert.Equal(t, KeyTypeMachine, s.KeyType("22222222-2222-2222-2222-222222222222"))
	assert.Equal(t, KeyTypeUnknown, s.KeyType("unknown-guid"))
}

func TestEnabledDefaults(t *testing.T) {
	s := loadSample(t)
	// API keys default to disabled when absent from the store.
	assert.False(t, s.Enabled("missing-api-key", false))
	// Machine identities default to enabled when absent.
	assert.True(t, s.Enabled("missing-machine-guid", true))
	assert.True(t, s.Enabled("11111111-1111-1111-1111-111111111111", false))
}

func TestAllowsClient(t *testing.T) {
	s := loadSample(t)
	id := "11111111-1111-1111-1111-111111111111"
	assert.True(t, s.AllowsClient(id, net.ParseIP("10.2.3.4")))
	assert.True(t, s.AllowsClient(id, net.ParseIP("203.0.113.9")))
	assert.False(t, s.AllowsClient(id, net.ParseIP("8.8.8.8")))
	// absent section allows everything
	assert.True(t, s.AllowsClient("missing", net.ParseIP("1.2.3.4")))
}

func TestReceiverConfig(t *testing.T) {
	s := loadSample(t)
	cfg := s.ReceiverConfig("33333333-3333-3333-3333-333333333333", "22222222-2222-2222-2222-222222222222")
	assert.Equal(t, 7200, cfg.History)
	assert.True(t, cfg.Send.Enabled)
	assert.Equal(t, []string{"10.1.1.1:19999"}, cfg.Send.Parents)
	assert.True(t, cfg.Ephemeral)
}

func TestReceiverConfigDefaults(t *testing.T) {
	s := loadSample(t)
	cfg := s.ReceiverConfig("k", "missing-guid")
	assert.Equal(t, 3600, cfg.History)
	assert.False(t, cfg.Send.Enabled)
}
