package interfaces

import (
	"context"

	"github.com/bobmcallan/marketsync/internal/models"
)

// RefStore is the reference-data store consumed by the sync pipeline.
// Find methods return (nil, nil) when no row matches the key. Upserts must
// be safe under concurrent invocation for different keys and atomic for the
// same key: insert when absent, otherwise overwrite mutable attributes in
// place, preserving the store-assigned identity.
type RefStore interface {
	// Exchanges
	FindExchange(ctx context.Context, code string) (*models.ExchangeRow, error)
	ListExchanges(ctx context.Context) ([]*models.ExchangeRow, error)
	UpsertExchange(ctx context.Context, ex *models.Exchange) (*models.ExchangeRow, error)

	// Symbols
	FindSymbol(ctx context.Context, code string) (*models.SymbolRow, error)
	ListSymbolsByExchange(ctx context.Context, exchangeCode string) ([]*models.SymbolRow, error)
	UpsertSymbol(ctx context.Context, exchange *models.ExchangeRow, sym *models.Symbol) (*models.SymbolRow, error)

	// Price bars. LastPrice returns the most recent stored bar for a symbol
	// code, or (nil, nil) when none exists. UpsertPrice is keyed by
	// (symbol code, date): re-syncing a stored date overwrites instead of
	// appending a duplicate row.
	LastPrice(ctx context.Context, symbolCode string) (*models.PriceBarRow, error)
	UpsertPrice(ctx context.Context, symbol *models.SymbolRow, bar *models.PriceBar) (*models.PriceBarRow, error)

	// Sync run history
	SaveSyncReport(ctx context.Context, report *models.SyncReport) error
	ListSyncReports(ctx context.Context, limit int) ([]*models.SyncReport, error)

	Close() error
}
