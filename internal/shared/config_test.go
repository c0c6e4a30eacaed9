package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./todox.db" {
			t.Errorf("expected database path ./todox.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Locale.Default != "en" {
			t.Errorf("expected default locale en, got %s", config.Locale.Default)
		}

		if len(config.Locale.Supported) != 6 {
			t.Errorf("expected 6 supported locales, got %v", config.Locale.Supported)
		}

		if config.Collection.Table != "todos" {
			t.Errorf("expected collection table todos, got %s", config.Collection.Table)
		}

		if config.Sync.MaxBackoff() != time.Minute {
			t.Errorf("expected max backoff 1m, got %v", config.Sync.MaxBackoff())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig partial file keeps defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "0.0.0.0"
port = 8080

[identity]
url = "https://example.supabase.co/auth/v1"
anon_key = "anon"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Identity.AnonKey != "anon" {
			t.Errorf("expected anon key anon, got %s", config.Identity.AnonKey)
		}
		if config.Locale.Default != "en" {
			t.Errorf("expected default locale to survive partial file, got %q", config.Locale.Default)
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("TODOX_PORT", "9999")
		t.Setenv("TODOX_ANON_KEY", "from-env")
		t.Setenv("TODOX_DB_PATH", "/tmp/env.db")
		t.Setenv("TODOX_LOCALE_SUPPORTED", "en,fr")

		config, err := ResolveConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("ResolveConfig() error = %v", err)
		}

		if config.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", config.Server.Port)
		}
		if config.Identity.AnonKey != "from-env" {
			t.Errorf("expected anon key from-env, got %s", config.Identity.AnonKey)
		}
		if config.Database.Path != "/tmp/env.db" {
			t.Errorf("expected db path /tmp/env.db, got %s", config.Database.Path)
		}
		if len(config.Locale.Supported) != 2 || config.Locale.Supported[1] != "fr" {
			t.Errorf("expected supported [en fr], got %v", config.Locale.Supported)
		}
	})
}
