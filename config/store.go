// Package config implements the stream.conf configuration store: a
// local, file-backed source of truth keyed by API key and by machine
// identity, consulted by the admission gate (spec.md §6 "Configuration
// surface"). ReceiverConfig builds the per-receiver configuration
// snapshot for an (API key, machine identity) pair.
package config

import (
	"net"
	"strings"
	"sync"
	"time"

	"gopkg.in/ini.v1"

	"github.com/ndstream/receiver/registry"
)

// KeyType is the configured type of a UUID section in stream.conf.
type KeyType string

const (
	KeyTypeAPI     KeyType = "api"
	KeyTypeMachine KeyType = "machine"
	KeyTypeUnknown KeyType = ""
)

// Store is a concurrency-safe, reloadable view of stream.conf. Reads
// (from the admission gate, on every incoming connection) vastly
// outnumber writes (a config reload), so access is guarded by an
// RWMutex rather than anything heavier.
type Store struct {
	mu   sync.RWMutex
	file *ini.File
}

// Empty returns a Store with no sections: every lookup falls back to its
// default (API keys disabled, machine identities enabled, any client
// allowed).
func Empty() *Store {
	return &Store{file: ini.Empty()}
}

// Load reads stream.conf from path.
func Load(path string) (*Store, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{file: f}, nil
}

// Reload re-reads stream.conf from path, replacing the in-memory view
// atomically with respect to concurrent readers.
func (s *Store) Reload(path string) error {
	f, err := ini.Load(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.file = f
	s.mu.Unlock()
	return nil
}

func (s *Store) section(id string) (*ini.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.file.HasSection(id) {
		return nil, false
	}
	sec, _ := s.file.GetSection(id)
	return sec, true
}

// KeyType reports whether id is configured as an API key, a machine
// identity, or is unknown to the store (spec.md §4.C steps 7 and 10).
func (s *Store) KeyType(id string) KeyType {
	sec, ok := s.section(id)
	if !ok {
		return KeyTypeUnknown
	}
	switch sec.Key("type").MustString("") {
	case string(KeyTypeAPI):
		return KeyTypeAPI
	case string(KeyTypeMachine):
		return KeyTypeMachine
	default:
		return KeyTypeUnknown
	}
}

// Enabled reports whether id is enabled. The default differs by kind:
// API keys default to disabled, machine identities default to enabled,
// matching spec.md §4.C steps 8 and 11 -- users must opt API keys in,
// but do not have to opt machine identities in.
func (s *Store) Enabled(id string, isMachine bool) bool {
	sec, ok := s.section(id)
	if !ok {
		return isMachine
	}
	return sec.Key("enabled").MustBool(isMachine)
}

// AllowsClient reports whether clientIP is permitted for id, per its
// "allow from" entry: a space-separated list of exact IPs or CIDR
// blocks, or "*" (the default) to allow any client.
func (s *Store) AllowsClient(id string, clientIP net.IP) bool {
	sec, ok := s.section(id)
	if !ok {
		return true
	}
	pattern := sec.Key("allow from").MustString("*")
	return matchAllowFrom(pattern, clientIP)
}

func matchAllowFrom(pattern string, clientIP net.IP) bool {
	for _, field := range strings.Fields(pattern) {
		if field == "*" {
			return true
		}
		if _, cidr, err := net.ParseCIDR(field); err == nil {
			if cidr.Contains(clientIP) {
				return true
			}
			continue
		}
		if ip := net.ParseIP(field); ip != nil && ip.Equal(clientIP) {
			return true
		}
	}
	return false
}

// ReceiverConfig assembles the per-connection configuration snapshot for
// a (apiKey, machineGUID) pair, read from the machine identity's
// section; falling back to documented defaults when a key is absent.
func (s *Store) ReceiverConfig(apiKey, machineGUID string) registry.Config {
	sec, ok := s.section(machineGUID)
	if !ok {
		return defaultReceiverConfig()
	}

	cfg := defaultReceiverConfig()
	if v, err := sec.Key("update every").Int(); err == nil {
		cfg.UpdateEvery = time.Duration(v) * time.Second
	}
	if v, err := sec.Key("history").Int(); err == nil {
		cfg.History = v
	}
	if mm := sec.Key("memory mode").MustString(""); mm != "" {
		cfg.MemoryMode = registry.MemoryMode(mm)
	}
	switch strings.ToLower(sec.Key("health enabled").MustString("auto")) {
	case "yes", "true", "on":
		cfg.Health = registry.HealthOn
	case "no", "false", "off":
		cfg.Health = registry.HealthOff
	default:
		cfg.Health = registry.HealthAuto
	}

	cfg.Send.Enabled = sec.Key("stream").MustBool(false)
	cfg.Send.APIKey = sec.Key("api key").MustString(apiKey)
	if parents := sec.Key("destination").MustString(""); parents != "" {
		cfg.Send.Parents = strings.Fields(parents)
	}
	cfg.Send.ChartsFiltered = sec.Key("send charts matching").MustString("*")

	cfg.Replication.Enabled = sec.Key("replication").MustBool(true)
	cfg.Replication.Period = time.Duration(sec.Key("replication period").MustInt(3600)) * time.Second
	cfg.Replication.Step = time.Duration(sec.Key("replication step").MustInt(600)) * time.Second

	cfg.Ephemeral = sec.Key("ephemeral").MustBool(false)

	return cfg
}

func defaultReceiverConfig() registry.Config {
	return registry.Config{
		UpdateEvery: time.Second,
		History:     3600,
		MemoryMode:  registry.MemoryModeDBEngine,
		Health:      registry.HealthAuto,
		Replication: registry.ReplicationConfig{
			Enabled: true,
			Period:  3600 * time.Second,
			Step:    600 * time.Second,
		},
	}
}
