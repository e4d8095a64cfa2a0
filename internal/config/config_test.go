package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"downforge/internal/eventbus"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.EventBufferSize != eventbus.DefaultBufferSize {
		t.Errorf("EventBufferSize = %d, want %d", cfg.EventBufferSize, eventbus.DefaultBufferSize)
	}
	if cfg.ConnectTimeoutSeconds != 30 {
		t.Errorf("ConnectTimeoutSeconds = %d, want 30", cfg.ConnectTimeoutSeconds)
	}
	if cfg.IdleReadTimeoutSeconds != 30 {
		t.Errorf("IdleReadTimeoutSeconds = %d, want 30", cfg.IdleReadTimeoutSeconds)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() should not error for missing file: %v", err)
	}
	if cfg.EventBufferSize != eventbus.DefaultBufferSize {
		t.Errorf("should return defaults, got EventBufferSize = %d", cfg.EventBufferSize)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "settings.json")

	data := `{"eventBufferSize": 128, "connectTimeoutSeconds": 15, "idleReadTimeoutSeconds": 45}`
	os.WriteFile(filePath, []byte(data), 0o644)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.EventBufferSize != 128 {
		t.Errorf("EventBufferSize = %d, want 128", cfg.EventBufferSize)
	}
	if cfg.ConnectTimeoutSeconds != 15 {
		t.Errorf("ConnectTimeoutSeconds = %d, want 15", cfg.ConnectTimeoutSeconds)
	}
	if cfg.IdleReadTimeoutSeconds != 45 {
		t.Errorf("IdleReadTimeoutSeconds = %d, want 45", cfg.IdleReadTimeoutSeconds)
	}
}

func TestLoad_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "settings.json")
	os.WriteFile(filePath, []byte("not valid json {{{"), 0o644)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() should not error for corrupted file: %v", err)
	}
	if cfg.EventBufferSize != eventbus.DefaultBufferSize {
		t.Errorf("corrupted file should fall back to defaults, got EventBufferSize = %d", cfg.EventBufferSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "settings.json")
	os.WriteFile(filePath, []byte(`{"connectTimeoutSeconds": 30}`), 0o644)

	t.Setenv("DOWNFORGE_CONNECT_TIMEOUT_SECONDS", "5")
	t.Setenv("DOWNFORGE_EVENT_BUFFER_SIZE", "256")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConnectTimeoutSeconds != 5 {
		t.Errorf("ConnectTimeoutSeconds = %d, want 5 (env override)", cfg.ConnectTimeoutSeconds)
	}
	if cfg.EventBufferSize != 256 {
		t.Errorf("EventBufferSize = %d, want 256 (env override)", cfg.EventBufferSize)
	}
}

func TestLoad_MalformedEnvOverrideIsIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOWNFORGE_CONNECT_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConnectTimeoutSeconds != 30 {
		t.Errorf("malformed override should be ignored, got ConnectTimeoutSeconds = %d", cfg.ConnectTimeoutSeconds)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.filePath = filepath.Join(dir, "settings.json")
	cfg.EventBufferSize = 999

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(cfg.filePath)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}

	var saved Config
	json.Unmarshal(data, &saved)
	if saved.EventBufferSize != 999 {
		t.Errorf("saved EventBufferSize = %d, want 999", saved.EventBufferSize)
	}
}

func TestConfig_ThreadSafety(t *testing.T) {
	cfg := Default()
	cfg.filePath = filepath.Join(t.TempDir(), "settings.json")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			cfg.Get()
		}
		close(done)
	}()

	for i := 0; i < 100; i++ {
		cfg.ConnectTimeout()
	}
	<-done
}

func TestConfig_ConnectTimeout(t *testing.T) {
	cfg := Default()
	cfg.ConnectTimeoutSeconds = 7

	if got := cfg.ConnectTimeout().Seconds(); got != 7 {
		t.Errorf("ConnectTimeout() = %v seconds, want 7", got)
	}
}
