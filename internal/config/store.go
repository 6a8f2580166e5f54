package config

import (
	"sync"
	"sync/atomic"
)

// Store hands out the current configuration snapshot. Snapshots are never
// mutated; a reload swaps in a new one.
type Store struct {
	current atomic.Pointer[Config]
	path    string

	mu       sync.Mutex
	onReload []func(*Config)
}

func NewStore(cfg *Config, path string) *Store {
	s := &Store{path: path}
	s.current.Store(cfg)
	return s
}

func (s *Store) Current() *Config {
	return s.current.Load()
}

// Path is the file the configuration was loaded from, or "".
func (s *Store) Path() string {
	return s.path
}

// OnReload registers fn to run with each snapshot a successful Reload swaps in.
func (s *Store) OnReload(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Reload loads the backing file again and swaps it in. The previous
// snapshot stays in place when loading fails.
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	s.current.Store(cfg)

	s.mu.Lock()
	hooks := append(([]func(*Config))(nil), s.onReload...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(cfg)
	}
	return nil
}
