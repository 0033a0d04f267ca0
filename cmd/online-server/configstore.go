package main

import (
	"sync"

	"github.com/brunoga/deep"

	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/log"
)

// configStore owns the configuration of the running server. Changes are
// written back to the file they were loaded from.
type configStore struct {
	mu   sync.Mutex
	cfg  *config.Config
	path string
	lg   *log.Logger
}

func newConfigStore(cfg *config.Config, path string, lg *log.Logger) *configStore {
	return &configStore{cfg: cfg, path: path, lg: lg}
}

// Snapshot returns a copy the caller may modify.
func (s *configStore) Snapshot() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deep.MustCopy(s.cfg)
}

// Update saves cfg and makes it the current configuration.
func (s *configStore) Update(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := cfg.Save(s.path); err != nil {
			return err
		}
	}
	s.cfg = cfg
	return nil
}

// RememberSSL keeps ignoring certificate errors in future sessions.
func (s *configStore) RememberSSL() {
	cfg := s.Snapshot()
	cfg.Online.IgnoreSSLErrors = true
	if err := s.Update(cfg); err != nil {
		s.lg.Warn("Cannot save certificate decision", "error", err)
	}
}
