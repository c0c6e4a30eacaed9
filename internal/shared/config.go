package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Any field tagged with env can be overridden from the environment after the file is read.
type Config struct {
	Server     ServerConfig     `toml:"server" envPrefix:"TODOX_"`
	Database   DatabaseConfig   `toml:"database" envPrefix:"TODOX_DB_"`
	Identity   IdentityConfig   `toml:"identity" envPrefix:"TODOX_"`
	Collection CollectionConfig `toml:"collection" envPrefix:"TODOX_COLLECTION_"`
	Locale     LocaleConfig     `toml:"locale" envPrefix:"TODOX_LOCALE_"`
	Sync       SyncConfig       `toml:"sync" envPrefix:"TODOX_SYNC_"`
	Log        LogConfig        `toml:"log" envPrefix:"TODOX_LOG_"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string `toml:"host" env:"HOST"`
	Port         int    `toml:"port" env:"PORT"`
	CookieSecure bool   `toml:"cookie_secure" env:"COOKIE_SECURE"`
	StaticDir    string `toml:"static_dir" env:"STATIC_DIR"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains local database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"PATH"`
	MaxOpenConns int    `toml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
}

// IdentityConfig points at the hosted identity service.
type IdentityConfig struct {
	URL                  string `toml:"url" env:"IDENTITY_URL"`
	AnonKey              string `toml:"anon_key" env:"ANON_KEY"`
	ClientID             string `toml:"client_id" env:"CLIENT_ID"`
	RefreshLeewaySeconds int    `toml:"refresh_leeway_seconds" env:"REFRESH_LEEWAY_SECONDS"`
}

// RefreshLeeway is how long before expiry an access token gets rotated.
func (i IdentityConfig) RefreshLeeway() time.Duration {
	return time.Duration(i.RefreshLeewaySeconds) * time.Second
}

// CollectionConfig points at the remote todo collection.
type CollectionConfig struct {
	URL         string `toml:"url" env:"URL"`
	RealtimeURL string `toml:"realtime_url" env:"REALTIME_URL"`
	Table       string `toml:"table" env:"TABLE"`
}

// LocaleConfig lists the locales the web app routes under.
type LocaleConfig struct {
	Supported []string `toml:"supported" env:"SUPPORTED" envSeparator:","`
	Default   string   `toml:"default" env:"DEFAULT"`
}

// SyncConfig tunes the local-first todo store.
type SyncConfig struct {
	PersistName      string  `toml:"persist_name" env:"PERSIST_NAME"`
	InitialBackoffMS int     `toml:"initial_backoff_ms" env:"INITIAL_BACKOFF_MS"`
	MaxBackoffMS     int     `toml:"max_backoff_ms" env:"MAX_BACKOFF_MS"`
	PushRate         float64 `toml:"push_rate" env:"PUSH_RATE"`
}

// InitialBackoff returns the first retry delay.
func (s SyncConfig) InitialBackoff() time.Duration {
	return time.Duration(s.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the ceiling for retry delays.
func (s SyncConfig) MaxBackoff() time.Duration {
	return time.Duration(s.MaxBackoffMS) * time.Millisecond
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults, then environment overrides are applied.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values from TODOX_* environment variables.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads the config at path when it exists and otherwise falls back to defaults plus environment.
func ResolveConfig(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}

	config := DefaultConfig()
	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}
