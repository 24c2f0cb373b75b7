package app

import (
	"context"
	"time"

	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/interfaces"
)

// startSyncScheduler runs the full sync pipeline on a fixed interval.
func startSyncScheduler(ctx context.Context, syncService interfaces.SyncService, logger *common.Logger, interval time.Duration) {
	logger.Info().Dur("interval", interval).Msg("Sync scheduler started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Sync scheduler: stopped")
			return
		case <-ticker.C:
			report, err := syncService.SyncAll(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("Scheduled sync failed")
				continue
			}
			logger.Info().
				Str("run", report.ID).
				Dur("duration", report.Duration()).
				Msg("Scheduled sync complete")
		}
	}
}
