package interfaces

import (
	"context"

	"github.com/bobmcallan/marketsync/internal/models"
)

// SyncService drives the staged reference-data synchronization pipeline.
type SyncService interface {
	// SyncAll runs the full exchanges → symbols → prices pipeline.
	// Per-item failures are isolated and counted in the report; a non-nil
	// error means the run itself could not proceed (e.g. the provider was
	// unreachable for the initial exchange listing).
	SyncAll(ctx context.Context) (*models.SyncReport, error)

	// ResyncStored re-drives symbols → prices from exchanges already in the
	// store, without pulling the exchange list from the provider.
	ResyncStored(ctx context.Context) (*models.SyncReport, error)

	// ResyncExchange re-drives price sync for the stored symbols of a
	// single exchange.
	ResyncExchange(ctx context.Context, exchangeCode string) (*models.SyncReport, error)
}
