// Package registry provides the durable name-to-configuration store for
// worker servers. The connection core consumes only the Lookup interface;
// persistence lives in the file-backed store.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrMissingName is returned when a server is registered without a name.
	ErrMissingName = errors.New("server name is required")

	// ErrMissingCommand is returned when a ServerConfig has no command.
	ErrMissingCommand = errors.New("server command is required")
)

// ServerConfig declares how a worker server process is launched.
type ServerConfig struct {
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	WorkingDir  string            `yaml:"working_dir,omitempty"`
	DisplayName string            `yaml:"display_name,omitempty"`

	// AutoConnect controls whether the server is dialed during bulk
	// auto-connect. Unset means true.
	AutoConnect *bool `yaml:"auto_connect,omitempty"`
}

// ShouldAutoConnect reports whether the server participates in auto-connect.
func (c ServerConfig) ShouldAutoConnect() bool {
	return c.AutoConnect == nil || *c.AutoConnect
}

// Validate checks that the config is launchable.
func (c ServerConfig) Validate() error {
	if c.Command == "" {
		return ErrMissingCommand
	}
	return nil
}

// Lookup is the read-only view of the registry consumed by the connection
// core.
type Lookup interface {
	// Get returns the config registered under name.
	Get(name string) (ServerConfig, bool)

	// All returns every registered config keyed by name.
	All() map[string]ServerConfig
}

// Store is an in-memory server registry. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	servers map[string]ServerConfig
}

// NewStore creates an empty registry store.
func NewStore() *Store {
	return &Store{servers: make(map[string]ServerConfig)}
}

// Get returns the config registered under name.
func (s *Store) Get(name string) (ServerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.servers[name]
	return cfg, ok
}

// All returns a copy of every registered config keyed by name.
func (s *Store) All() map[string]ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ServerConfig, len(s.servers))
	for name, cfg := range s.servers {
		out[name] = cfg
	}
	return out
}

// Names returns all registered server names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.servers))
	for name := range s.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set registers or replaces the config for name.
func (s *Store) Set(name string, cfg ServerConfig) error {
	if name == "" {
		return ErrMissingName
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("server %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[name] = cfg
	return nil
}

// Remove deletes the config for name, reporting whether it existed.
func (s *Store) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.servers[name]
	delete(s.servers, name)
	return ok
}

// Len returns the number of registered servers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.servers)
}
