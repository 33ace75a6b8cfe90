package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8085 {
		t.Errorf("Expected default port 8085, got %d", cfg.Server.Port)
	}
	if cfg.Embedding.BatchSize != 16 {
		t.Errorf("Expected default embedding batch size 16, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.LLM.DefaultProvider != "gemini" {
		t.Errorf("Expected default provider 'gemini', got '%s'", cfg.LLM.DefaultProvider)
	}
	if cfg.Crawler.RequestDelay != 1*time.Second {
		t.Errorf("Expected request delay 1s, got %v", cfg.Crawler.RequestDelay)
	}
}

func TestLoadFromFiles_Override(t *testing.T) {
	tomlContent := `
environment = "test"

[server]
port = 9191

[storage.badger]
path = "/tmp/inquiro-test"

[embedding]
batch_size = 4
dimensions = 64
`

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected environment 'test', got '%s'", cfg.Environment)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Expected port 9191, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Badger.Path != "/tmp/inquiro-test" {
		t.Errorf("Expected badger path '/tmp/inquiro-test', got '%s'", cfg.Storage.Badger.Path)
	}
	if cfg.Embedding.Dimensions != 64 {
		t.Errorf("Expected 64 dimensions, got %d", cfg.Embedding.Dimensions)
	}

	// Untouched sections keep their defaults
	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got '%s'", cfg.Server.Host)
	}
	if cfg.Claude.MaxTokens != 8192 {
		t.Errorf("Expected default max tokens 8192, got %d", cfg.Claude.MaxTokens)
	}
}

func TestLoadFromFiles_EnvOverride(t *testing.T) {
	t.Setenv("INQUIRO_SERVER_PORT", "7070")
	t.Setenv("INQUIRO_LOG_LEVEL", "debug")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Expected env-overridden port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected env-overridden level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ApplyFlagOverrides("0.0.0.0", 8200, "warn", "")

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host '0.0.0.0', got '%s'", cfg.Server.Host)
	}
	if cfg.Server.Port != 8200 {
		t.Errorf("Expected port 8200, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected level 'warn', got '%s'", cfg.Logging.Level)
	}
	// Empty flag leaves config untouched
	if cfg.Storage.Badger.Path != "./data/inquiro" {
		t.Errorf("Expected default badger path, got '%s'", cfg.Storage.Badger.Path)
	}
}
