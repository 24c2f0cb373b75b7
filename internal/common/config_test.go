package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 10, cfg.Provider.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.Provider.GetTimeout())
	assert.Equal(t, 4, cfg.Sync.GetSymbolWorkers())
	assert.Equal(t, 8, cfg.Sync.GetPriceWorkers())
	assert.Equal(t, time.Duration(0), cfg.Sync.GetInterval())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marketsync.toml")
	content := `
environment = "production"

[server]
port = 9090

[storage]
backend = "surrealdb"
address = "ws://db:8000"

[provider]
token = "pk_test_token"
rate_limit = 5

[sync]
price_workers = 16
interval = "1h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "surrealdb", cfg.Storage.Backend)
	assert.Equal(t, "ws://db:8000", cfg.Storage.Address)
	assert.Equal(t, "pk_test_token", cfg.Provider.Token)
	assert.Equal(t, 5, cfg.Provider.RateLimit)
	assert.Equal(t, 16, cfg.Sync.GetPriceWorkers())
	assert.Equal(t, time.Hour, cfg.Sync.GetInterval())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Storage.Backend)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKETSYNC_ENV", "prod")
	t.Setenv("MARKETSYNC_PORT", "7070")
	t.Setenv("MARKETSYNC_PROVIDER_TOKEN", "pk_env_token")
	t.Setenv("MARKETSYNC_STORAGE_BACKEND", "surrealdb")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "pk_env_token", cfg.Provider.Token)
	assert.Equal(t, "surrealdb", cfg.Storage.Backend)
}
