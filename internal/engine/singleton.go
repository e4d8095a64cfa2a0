package engine

import (
	"sync"

	"downforge/internal/config"
)

var (
	once     sync.Once
	instance *Engine
	initErr  error
)

// Get returns the process-wide Engine singleton, constructing it
// against dataDir and cfg on first call and ignoring both arguments on
// every subsequent call (spec §4.5.8). Tests that need a fresh Engine
// per case should call New/NewWithConfig directly instead.
func Get(dataDir string, cfg *config.Config) (*Engine, error) {
	once.Do(func() {
		instance, initErr = NewWithConfig(dataDir, cfg)
	})
	return instance, initErr
}
