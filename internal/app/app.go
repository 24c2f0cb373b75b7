// Package app wires configuration, storage, the provider client, and the
// sync service into a runnable application core.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/marketsync/internal/clients/iexcloud"
	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/interfaces"
	"github.com/bobmcallan/marketsync/internal/services/refsync"
	"github.com/bobmcallan/marketsync/internal/storage"
)

// App holds all initialized services and clients. It is the shared core
// used by cmd/marketsync-server.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.RefStore
	Client      interfaces.MarketDataClient
	SyncService interfaces.SyncService
	StartupTime time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, the provider client, and the sync service.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Config resolution: provided path, MARKETSYNC_CONFIG, binary dir, then
	// the development fallback
	if configPath == "" {
		configPath = os.Getenv("MARKETSYNC_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "marketsync.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/marketsync.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := storage.NewRefStore(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Provider.Token == "" {
		logger.Warn().Msg("Provider token not configured - sync runs will be rejected by the provider")
	}

	client := iexcloud.NewClient(config.Provider.Token,
		iexcloud.WithBaseURL(config.Provider.BaseURL),
		iexcloud.WithLogger(logger),
		iexcloud.WithRateLimit(config.Provider.RateLimit),
		iexcloud.WithTimeout(config.Provider.GetTimeout()),
	)

	syncService := refsync.NewService(store, client, logger, config)

	a := &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		Client:      client,
		SyncService: syncService,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// StartScheduler launches the background sync goroutine when an interval is
// configured. A zero interval disables scheduling.
func (a *App) StartScheduler() {
	interval := a.Config.Sync.GetInterval()
	if interval <= 0 {
		a.Logger.Debug().Msg("Sync scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go startSyncScheduler(ctx, a.SyncService, a.Logger, interval)
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}
