// Package common provides shared utilities for marketsync
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for marketsync
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Provider    ProviderConfig `toml:"provider"`
	Sync        SyncConfig     `toml:"sync"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the reference store backend.
// Backend is "badger" (embedded, default) or "surrealdb".
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"` // badger data directory
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ProviderConfig holds market-data provider API configuration.
// The token is passed explicitly to the client; it is never read from
// ambient process state by the client itself.
type ProviderConfig struct {
	BaseURL   string `toml:"base_url"`
	Token     string `toml:"token"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SyncConfig holds pipeline tunables.
type SyncConfig struct {
	SymbolWorkers int    `toml:"symbol_workers"` // concurrent symbol fetches (one per exchange)
	PriceWorkers  int    `toml:"price_workers"`  // concurrent price syncs (one per symbol)
	Interval      string `toml:"interval"`       // scheduler interval, "0" disables
}

// GetSymbolWorkers returns the symbol stage concurrency bound.
func (c *SyncConfig) GetSymbolWorkers() int {
	if c.SymbolWorkers > 0 {
		return c.SymbolWorkers
	}
	return 4
}

// GetPriceWorkers returns the price stage concurrency bound.
func (c *SyncConfig) GetPriceWorkers() int {
	if c.PriceWorkers > 0 {
		return c.PriceWorkers
	}
	return 8
}

// GetInterval parses the scheduler interval; zero disables scheduling.
func (c *SyncConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "badger",
			Path:      "data/refstore",
			Address:   "ws://localhost:8000",
			Namespace: "marketsync",
			Database:  "refdata",
		},
		Provider: ProviderConfig{
			BaseURL:   "https://cloud.iexapis.com/v1",
			RateLimit: 10,
			Timeout:   "30s",
		},
		Sync: SyncConfig{
			SymbolWorkers: 4,
			PriceWorkers:  8,
			Interval:      "0",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MARKETSYNC_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("MARKETSYNC_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("MARKETSYNC_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("MARKETSYNC_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("MARKETSYNC_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}

	if path := os.Getenv("MARKETSYNC_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if addr := os.Getenv("MARKETSYNC_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}

	if token := os.Getenv("MARKETSYNC_PROVIDER_TOKEN"); token != "" {
		config.Provider.Token = token
	}

	if url := os.Getenv("MARKETSYNC_PROVIDER_URL"); url != "" {
		config.Provider.BaseURL = url
	}

	if interval := os.Getenv("MARKETSYNC_SYNC_INTERVAL"); interval != "" {
		config.Sync.Interval = interval
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
