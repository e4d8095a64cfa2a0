// Package config loads the engine's tunables: settings.json in the
// app data directory, overridable by a .env file and then by raw
// environment variables, in that order (weakest to strongest).
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"downforge/internal/eventbus"
	"downforge/internal/logger"
)

// Config holds the engine-level tunables. The 8 KiB read buffer stays a
// fixed constant in internal/transfer; the two HTTP timeouts are
// tunable here and default to that package's 30s constants.
type Config struct {
	// EventBufferSize is the per-subscriber EventBus channel capacity
	// (spec §4.3, default eventbus.DefaultBufferSize).
	EventBufferSize int `json:"eventBufferSize"`

	// ConnectTimeoutSeconds and IdleReadTimeoutSeconds mirror
	// transfer.ConnectTimeout/IdleReadTimeout so they can be tuned
	// without a rebuild.
	ConnectTimeoutSeconds  int `json:"connectTimeoutSeconds"`
	IdleReadTimeoutSeconds int `json:"idleReadTimeoutSeconds"`

	mu       sync.RWMutex
	filePath string
}

// Default returns the configuration spec's defaults describe.
func Default() *Config {
	return &Config{
		EventBufferSize:        eventbus.DefaultBufferSize,
		ConnectTimeoutSeconds:  30,
		IdleReadTimeoutSeconds: 30,
	}
}

// Load reads settings.json from configDir, falling back to defaults on
// a missing or corrupt file, then applies a .env file in configDir (if
// present) and finally raw process environment variables.
func Load(configDir string) (*Config, error) {
	filePath := filepath.Join(configDir, "settings.json")
	cfg := Default()
	cfg.filePath = filePath

	if data, err := os.ReadFile(filePath); err == nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			logger.Log.Warn().Err(jsonErr).Str("path", filePath).Msg("config: corrupt settings file, using defaults")
			cfg = Default()
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	cfg.filePath = filePath

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn().Err(err).Msg("config: failed to load .env file")
	}

	applyEnvOverride("DOWNFORGE_EVENT_BUFFER_SIZE", &cfg.EventBufferSize)
	applyEnvOverride("DOWNFORGE_CONNECT_TIMEOUT_SECONDS", &cfg.ConnectTimeoutSeconds)
	applyEnvOverride("DOWNFORGE_IDLE_READ_TIMEOUT_SECONDS", &cfg.IdleReadTimeoutSeconds)

	return cfg, nil
}

func applyEnvOverride(key string, target *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Log.Warn().Str("key", key).Str("value", raw).Msg("config: ignoring malformed environment override")
		return
	}
	*target = n
}

// Save writes the current config to disk.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.filePath, data, 0o644)
}

// Get returns a copy of the current configuration.
func (c *Config) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{
		EventBufferSize:        c.EventBufferSize,
		ConnectTimeoutSeconds:  c.ConnectTimeoutSeconds,
		IdleReadTimeoutSeconds: c.IdleReadTimeoutSeconds,
	}
}

// ConnectTimeout returns the configured connect timeout as a Duration.
func (c *Config) ConnectTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// IdleReadTimeout returns the configured idle-read timeout as a Duration.
func (c *Config) IdleReadTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.IdleReadTimeoutSeconds) * time.Second
}
