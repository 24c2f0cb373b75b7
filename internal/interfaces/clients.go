// Package interfaces defines service contracts for marketsync
package interfaces

import (
	"context"

	"github.com/bobmcallan/marketsync/internal/models"
)

// MarketDataClient provides read access to the market-data provider.
// Implementations carry their own credentials; callers never pass tokens.
type MarketDataClient interface {
	// ListExchanges retrieves the full exchange list. The provider bounds
	// the result size; no pagination is available on this endpoint.
	ListExchanges(ctx context.Context) ([]*models.Exchange, error)

	// ListSymbols retrieves all symbols listed on an exchange.
	ListSymbols(ctx context.Context, exchangeCode string) ([]*models.Symbol, error)

	// ListRangePrices retrieves daily price bars for a symbol over a named
	// historical range (e.g. "5d", "1m", "max").
	ListRangePrices(ctx context.Context, symbolCode, rng string) ([]*models.PriceBar, error)

	// ListLastPrices retrieves the most recent n daily price bars for a
	// symbol. Available as an alternative incremental path; the main
	// pipeline uses ListRangePrices.
	ListLastPrices(ctx context.Context, symbolCode string, n int) ([]*models.PriceBar, error)
}
