// Package refsync implements the staged reference-data synchronization
// pipeline: exchanges → symbols → daily price bars.
package refsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/interfaces"
	"github.com/bobmcallan/marketsync/internal/models"
)

// Service implements interfaces.SyncService.
type Service struct {
	store  interfaces.RefStore
	client interfaces.MarketDataClient
	logger *common.Logger

	symbolWorkers int
	priceWorkers  int
}

// NewService creates a new sync service.
func NewService(store interfaces.RefStore, client interfaces.MarketDataClient, logger *common.Logger, config *common.Config) *Service {
	return &Service{
		store:         store,
		client:        client,
		logger:        logger,
		symbolWorkers: config.Sync.GetSymbolWorkers(),
		priceWorkers:  config.Sync.GetPriceWorkers(),
	}
}

// stageCounter guards one stage's stats against concurrent workers.
type stageCounter struct {
	mu    sync.Mutex
	stats *models.StageStats
}

func (c *stageCounter) addFetched(n int)  { c.mu.Lock(); c.stats.Fetched += n; c.mu.Unlock() }
func (c *stageCounter) addUpserted(n int) { c.mu.Lock(); c.stats.Upserted += n; c.mu.Unlock() }
func (c *stageCounter) addEmitted(n int)  { c.mu.Lock(); c.stats.Emitted += n; c.mu.Unlock() }
func (c *stageCounter) addDropped(n int)  { c.mu.Lock(); c.stats.Dropped += n; c.mu.Unlock() }
func (c *stageCounter) addSkipped(n int)  { c.mu.Lock(); c.stats.Skipped += n; c.mu.Unlock() }
func (c *stageCounter) addFailed(n int)   { c.mu.Lock(); c.stats.Failed += n; c.mu.Unlock() }

// symbolSet tracks symbol codes already handed to the price stage within one
// run. The provider can list the same exchange code more than once, and the
// same symbol then arrives through every duplicate emission; without the set,
// each arrival would trigger its own price sync and full-history fetch.
type symbolSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newSymbolSet() *symbolSet {
	return &symbolSet{seen: make(map[string]struct{})}
}

// add reports whether code was seen for the first time.
func (s *symbolSet) add(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[code]; ok {
		return false
	}
	s.seen[code] = struct{}{}
	return true
}

// SyncAll runs the full exchanges → symbols → prices pipeline.
func (s *Service) SyncAll(ctx context.Context) (*models.SyncReport, error) {
	report := s.newReport()
	s.logger.Info().Str("run", report.ID).Msg("Sync run started")

	codes, err := s.syncExchanges(ctx, &stageCounter{stats: &report.Exchanges})
	if err != nil {
		return s.finishReport(ctx, report, err)
	}

	s.runSymbolPriceStages(ctx, codes, report)
	return s.finishReport(ctx, report, nil)
}

// ResyncStored re-drives symbols → prices from exchanges already in the
// store, without pulling the exchange list from the provider.
func (s *Service) ResyncStored(ctx context.Context) (*models.SyncReport, error) {
	report := s.newReport()
	s.logger.Info().Str("run", report.ID).Msg("Stored resync started")

	rows, err := s.store.ListExchanges(ctx)
	if err != nil {
		return s.finishReport(ctx, report, fmt.Errorf("failed to list stored exchanges: %w", err))
	}

	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, row.Code)
	}
	report.Exchanges.Emitted = len(codes)

	s.runSymbolPriceStages(ctx, codes, report)
	return s.finishReport(ctx, report, nil)
}

// ResyncExchange re-drives price sync for the stored symbols of one
// exchange. Neither the exchange list nor the symbol list is re-pulled from
// the provider; only price history is refreshed.
func (s *Service) ResyncExchange(ctx context.Context, exchangeCode string) (*models.SyncReport, error) {
	report := s.newReport()
	s.logger.Info().Str("run", report.ID).Str("exchange", exchangeCode).Msg("Exchange resync started")

	row, err := s.store.FindExchange(ctx, exchangeCode)
	if err != nil {
		return s.finishReport(ctx, report, err)
	}
	if row == nil {
		return s.finishReport(ctx, report, fmt.Errorf("exchange '%s' is not stored", exchangeCode))
	}
	report.Exchanges.Emitted = 1

	symbols, err := s.store.ListSymbolsByExchange(ctx, exchangeCode)
	if err != nil {
		return s.finishReport(ctx, report, fmt.Errorf("failed to list stored symbols: %w", err))
	}
	report.Symbols.Emitted = len(symbols)

	projections := make([]*models.SymbolProjection, 0, len(symbols))
	for _, sym := range symbols {
		projections = append(projections, sym.Projection())
	}

	s.runPriceStage(ctx, projections, &stageCounter{stats: &report.Prices})
	return s.finishReport(ctx, report, nil)
}

func (s *Service) newReport() *models.SyncReport {
	return &models.SyncReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
}

// finishReport stamps and persists the report. A save failure is logged,
// not surfaced: the run outcome is already decided. The save runs on its own
// deadline, detached from the run context, so a cancelled run still records
// its report.
func (s *Service) finishReport(ctx context.Context, report *models.SyncReport, runErr error) (*models.SyncReport, error) {
	report.FinishedAt = time.Now()
	if runErr != nil {
		report.Error = runErr.Error()
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.store.SaveSyncReport(saveCtx, report); err != nil {
		s.logger.Warn().Err(err).Str("run", report.ID).Msg("Failed to persist sync report")
	}

	s.logger.Info().
		Str("run", report.ID).
		Dur("duration", report.Duration()).
		Int("exchanges_upserted", report.Exchanges.Upserted).
		Int("symbols_upserted", report.Symbols.Upserted).
		Int("prices_upserted", report.Prices.Upserted).
		Int("failed", report.Exchanges.Failed+report.Symbols.Failed+report.Prices.Failed).
		Msg("Sync run finished")

	return report, runErr
}

// syncExchanges pulls the full exchange list, upserts each record, and
// returns the emitted codes. One code is emitted per source record, not per
// distinct code: duplicates in the provider response each produce an
// emission against the same stored row. A fetch failure here fails the run;
// there is nothing to drive the later stages with.
func (s *Service) syncExchanges(ctx context.Context, counter *stageCounter) ([]string, error) {
	exchanges, err := s.client.ListExchanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange list: %w", err)
	}
	counter.addFetched(len(exchanges))

	codes := make([]string, 0, len(exchanges))
	for _, ex := range exchanges {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.store.UpsertExchange(ctx, ex); err != nil {
			s.logger.Warn().Err(err).Str("exchange", ex.Code).Msg("Exchange upsert failed")
			counter.addFailed(1)
			continue
		}
		counter.addUpserted(1)
		counter.addEmitted(1)
		codes = append(codes, ex.Code)
	}

	return codes, nil
}

// runSymbolPriceStages fans exchange codes out to the symbol stage and its
// projections out to the price stage. Both stages run as bounded worker
// pools joined by a small channel so an oversized symbol listing cannot
// queue unboundedly in memory.
func (s *Service) runSymbolPriceStages(ctx context.Context, codes []string, report *models.SyncReport) {
	symbolCounter := &stageCounter{stats: &report.Symbols}
	priceCounter := &stageCounter{stats: &report.Prices}

	codeCh := make(chan string)
	projCh := make(chan *models.SymbolProjection, s.priceWorkers)
	seen := newSymbolSet()

	var symbolWG sync.WaitGroup
	for i := 0; i < s.symbolWorkers; i++ {
		symbolWG.Add(1)
		go func() {
			defer symbolWG.Done()
			for code := range codeCh {
				s.syncSymbols(ctx, code, symbolCounter, seen, projCh)
			}
		}()
	}

	var priceWG sync.WaitGroup
	for i := 0; i < s.priceWorkers; i++ {
		priceWG.Add(1)
		go func() {
			defer priceWG.Done()
			for proj := range projCh {
				s.syncSymbolPrices(ctx, proj, priceCounter)
			}
		}()
	}

	for _, code := range codes {
		if ctx.Err() != nil {
			break
		}
		codeCh <- code
	}
	close(codeCh)

	symbolWG.Wait()
	close(projCh)
	priceWG.Wait()
}

// runPriceStage drives the price stage alone over a fixed projection set.
func (s *Service) runPriceStage(ctx context.Context, projections []*models.SymbolProjection, counter *stageCounter) {
	projCh := make(chan *models.SymbolProjection)

	var wg sync.WaitGroup
	for i := 0; i < s.priceWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for proj := range projCh {
				s.syncSymbolPrices(ctx, proj, counter)
			}
		}()
	}

	for _, proj := range projections {
		if ctx.Err() != nil {
			break
		}
		projCh <- proj
	}
	close(projCh)
	wg.Wait()
}

// syncSymbols pulls all symbols for one exchange, upserts each against the
// stored exchange row, and emits a projection for each symbol's first
// appearance in the run. Later appearances, arriving through duplicate
// exchange emissions, are still upserted but not handed to the price stage
// again. If the exchange is not stored the whole batch is dropped: symbols
// cannot be persisted without a resolvable parent.
func (s *Service) syncSymbols(ctx context.Context, exchangeCode string, counter *stageCounter, seen *symbolSet, out chan<- *models.SymbolProjection) {
	if ctx.Err() != nil {
		return
	}

	symbols, err := s.client.ListSymbols(ctx, exchangeCode)
	if err != nil {
		s.logger.Warn().Err(err).Str("exchange", exchangeCode).Msg("Symbol fetch failed")
		counter.addFailed(1)
		return
	}
	counter.addFetched(len(symbols))

	exchange, err := s.store.FindExchange(ctx, exchangeCode)
	if err != nil {
		s.logger.Warn().Err(err).Str("exchange", exchangeCode).Msg("Exchange lookup failed")
		counter.addFailed(1)
		return
	}
	if exchange == nil {
		s.logger.Debug().Str("exchange", exchangeCode).Int("symbols", len(symbols)).Msg("Dropping symbols for unstored exchange")
		counter.addDropped(len(symbols))
		return
	}

	for _, sym := range symbols {
		if ctx.Err() != nil {
			return
		}
		row, err := s.store.UpsertSymbol(ctx, exchange, sym)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", sym.Code).Msg("Symbol upsert failed")
			counter.addFailed(1)
			continue
		}
		counter.addUpserted(1)
		if !seen.add(row.Code) {
			continue
		}
		counter.addEmitted(1)
		out <- row.Projection()
	}
}

// syncSymbolPrices selects a history range from the symbol's most recent
// stored bar, fetches that range, and upserts each returned bar keyed by
// (symbol code, date). A zero range is an explicit skip, not an error.
func (s *Service) syncSymbolPrices(ctx context.Context, proj *models.SymbolProjection, counter *stageCounter) {
	if ctx.Err() != nil {
		return
	}

	last, err := s.store.LastPrice(ctx, proj.Code)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", proj.Code).Msg("Last price lookup failed")
		counter.addFailed(1)
		return
	}

	var lastDate *time.Time
	if last != nil {
		d := last.Date
		lastDate = &d
	}

	rng := SelectRange(lastDate, time.Now())
	if rng == RangeZero {
		counter.addSkipped(1)
		return
	}

	bars, err := s.client.ListRangePrices(ctx, proj.Code, string(rng))
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", proj.Code).Str("range", string(rng)).Msg("Price fetch failed")
		counter.addFailed(1)
		return
	}
	counter.addFetched(len(bars))

	symbol, err := s.store.FindSymbol(ctx, proj.Code)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", proj.Code).Msg("Symbol lookup failed")
		counter.addFailed(1)
		return
	}
	if symbol == nil {
		counter.addDropped(len(bars))
		return
	}

	for _, bar := range bars {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.store.UpsertPrice(ctx, symbol, bar); err != nil {
			s.logger.Warn().Err(err).Str("symbol", proj.Code).Time("date", bar.Date).Msg("Price upsert failed")
			counter.addFailed(1)
			continue
		}
		counter.addUpserted(1)
		counter.addEmitted(1)
	}

	s.logger.Debug().Str("symbol", proj.Code).Str("range", string(rng)).Int("bars", len(bars)).Msg("Prices synced")
}

// Compile-time check
var _ interfaces.SyncService = (*Service)(nil)
