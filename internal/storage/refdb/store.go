// Package refdb implements the reference-data store using BadgerHold.
// It is the embedded default backend; no external database is required.
package refdb

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/interfaces"
	"github.com/bobmcallan/marketsync/internal/models"
)

// lockStripes bounds the number of per-key mutexes. Upserts for the same
// key serialize on one stripe so concurrent workers cannot interleave the
// read-modify-write and duplicate a row.
const lockStripes = 64

// Store implements interfaces.RefStore backed by BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
	locks  [lockStripes]sync.Mutex
}

// NewStore opens (or creates) a BadgerHold store at the given directory.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data path %s: %w", path, err)
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference database at %s: %w", path, err)
	}

	logger.Info().Str("path", path).Msg("Reference database opened")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) lockKey(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.locks[h.Sum32()%lockStripes]
}

// upsert writes a record under key, retrying once on a transaction conflict.
func (s *Store) upsert(key string, data interface{}) error {
	err := s.db.Upsert(key, data)
	if err != nil && strings.Contains(err.Error(), "Conflict") {
		err = s.db.Upsert(key, data)
	}
	return err
}

// --- Exchanges ---

func (s *Store) FindExchange(_ context.Context, code string) (*models.ExchangeRow, error) {
	var row models.ExchangeRow
	if err := s.db.Get(code, &row); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get exchange '%s': %w", code, err)
	}
	return &row, nil
}

func (s *Store) ListExchanges(_ context.Context) ([]*models.ExchangeRow, error) {
	var all []models.ExchangeRow
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	rows := make([]*models.ExchangeRow, len(all))
	for i := range all {
		rows[i] = &all[i]
	}
	return rows, nil
}

func (s *Store) UpsertExchange(ctx context.Context, ex *models.Exchange) (*models.ExchangeRow, error) {
	mu := s.lockKey("exchange/" + ex.Code)
	mu.Lock()
	defer mu.Unlock()

	row, err := s.FindExchange(ctx, ex.Code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.ExchangeRow{ID: uuid.New().String()}
	}
	row.Apply(ex)
	row.UpdatedAt = time.Now()

	if err := s.upsert(row.Code, row); err != nil {
		return nil, fmt.Errorf("failed to upsert exchange '%s': %w", row.Code, err)
	}
	s.logger.Debug().Str("exchange", row.Code).Msg("Exchange upserted")
	return row, nil
}

// --- Symbols ---

func (s *Store) FindSymbol(_ context.Context, code string) (*models.SymbolRow, error) {
	var row models.SymbolRow
	if err := s.db.Get(code, &row); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get symbol '%s': %w", code, err)
	}
	return &row, nil
}

func (s *Store) ListSymbolsByExchange(_ context.Context, exchangeCode string) ([]*models.SymbolRow, error) {
	var all []models.SymbolRow
	if err := s.db.Find(&all, badgerhold.Where("ExchangeCode").Eq(exchangeCode)); err != nil {
		return nil, fmt.Errorf("failed to list symbols for exchange '%s': %w", exchangeCode, err)
	}
	rows := make([]*models.SymbolRow, len(all))
	for i := range all {
		rows[i] = &all[i]
	}
	return rows, nil
}

func (s *Store) UpsertSymbol(ctx context.Context, exchange *models.ExchangeRow, sym *models.Symbol) (*models.SymbolRow, error) {
	code := strings.TrimSpace(sym.Code)

	mu := s.lockKey("symbol/" + code)
	mu.Lock()
	defer mu.Unlock()

	row, err := s.FindSymbol(ctx, code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.SymbolRow{ID: uuid.New().String()}
	}
	row.Apply(exchange, sym)
	row.UpdatedAt = time.Now()

	if err := s.upsert(row.Code, row); err != nil {
		return nil, fmt.Errorf("failed to upsert symbol '%s': %w", row.Code, err)
	}
	return row, nil
}

// --- Price bars ---

func (s *Store) LastPrice(_ context.Context, symbolCode string) (*models.PriceBarRow, error) {
	var bars []models.PriceBarRow
	query := badgerhold.Where("SymbolCode").Eq(symbolCode).SortBy("Date").Reverse().Limit(1)
	if err := s.db.Find(&bars, query); err != nil {
		return nil, fmt.Errorf("failed to query last price for '%s': %w", symbolCode, err)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return &bars[0], nil
}

func (s *Store) UpsertPrice(_ context.Context, symbol *models.SymbolRow, bar *models.PriceBar) (*models.PriceBarRow, error) {
	key := symbol.Code + ":" + bar.Date.Format("2006-01-02")

	mu := s.lockKey("price/" + key)
	mu.Lock()
	defer mu.Unlock()

	var existing models.PriceBarRow
	row := &existing
	if err := s.db.Get(key, &existing); err != nil {
		if err != badgerhold.ErrNotFound {
			return nil, fmt.Errorf("failed to get price '%s': %w", key, err)
		}
		row = &models.PriceBarRow{ID: uuid.New().String()}
	}
	row.Apply(symbol, bar)
	row.StoredAt = time.Now()

	if err := s.upsert(key, row); err != nil {
		return nil, fmt.Errorf("failed to upsert price '%s': %w", key, err)
	}
	return row, nil
}

// --- Sync run history ---

func (s *Store) SaveSyncReport(_ context.Context, report *models.SyncReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if err := s.upsert(report.ID, report); err != nil {
		return fmt.Errorf("failed to save sync report: %w", err)
	}
	return nil
}

func (s *Store) ListSyncReports(_ context.Context, limit int) ([]*models.SyncReport, error) {
	var all []models.SyncReport
	query := (&badgerhold.Query{}).SortBy("StartedAt").Reverse().Limit(limit)
	if err := s.db.Find(&all, query); err != nil {
		return nil, fmt.Errorf("failed to list sync reports: %w", err)
	}
	reports := make([]*models.SyncReport, len(all))
	for i := range all {
		reports[i] = &all[i]
	}
	return reports, nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check
var _ interfaces.RefStore = (*Store)(nil)
