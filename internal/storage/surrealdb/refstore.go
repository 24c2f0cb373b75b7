// Package surrealdb implements the reference-data store on SurrealDB.
// Upserts address records by natural key (exchange code, symbol code,
// symbol code + date for price bars) so the UPSERT statement is the
// atomicity boundary; the row's uid survives overwrites.
package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/interfaces"
	"github.com/bobmcallan/marketsync/internal/models"
)

// Store implements interfaces.RefStore using SurrealDB.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewStore connects to SurrealDB and prepares the reference-data tables.
func NewStore(logger *common.Logger, config *common.Config) (*Store, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables up front (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{"exchange", "symbol", "price", "sync_report"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB reference store initialized")

	return &Store{db: db, logger: logger}, nil
}

// upsert writes content at the record id. Conflict-class failures get one
// more attempt; anything else surfaces immediately.
func (s *Store) upsert(ctx context.Context, rid surrealmodels.RecordID, content any) error {
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{"rid": rid, "data": content}

	_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
	if err != nil && isConflict(err) {
		_, err = surrealdb.Query[any](ctx, s.db, sql, vars)
	}
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// isConflict reports whether an error is a concurrent-write conflict worth a
// single retry. SurrealDB surfaces these as text, not typed errors.
func isConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "conflict") || (strings.Contains(msg, "transaction") && strings.Contains(msg, "retry"))
}

// --- Exchanges ---

func (s *Store) FindExchange(ctx context.Context, code string) (*models.ExchangeRow, error) {
	row, err := surrealdb.Select[models.ExchangeRow](ctx, s.db, surrealmodels.NewRecordID("exchange", code))
	if err != nil {
		return nil, fmt.Errorf("failed to select exchange '%s': %w", code, err)
	}
	if row == nil || row.Code == "" {
		return nil, nil
	}
	return row, nil
}

func (s *Store) ListExchanges(ctx context.Context) ([]*models.ExchangeRow, error) {
	sql := "SELECT * FROM exchange ORDER BY code ASC"
	results, err := surrealdb.Query[[]models.ExchangeRow](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}

	var rows []*models.ExchangeRow
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			rows = append(rows, &(*results)[0].Result[i])
		}
	}
	return rows, nil
}

func (s *Store) UpsertExchange(ctx context.Context, ex *models.Exchange) (*models.ExchangeRow, error) {
	row, err := s.FindExchange(ctx, ex.Code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.ExchangeRow{ID: uuid.New().String()}
	}
	row.Apply(ex)
	row.UpdatedAt = time.Now()

	if err := s.upsert(ctx, surrealmodels.NewRecordID("exchange", row.Code), row); err != nil {
		return nil, fmt.Errorf("failed to upsert exchange '%s': %w", row.Code, err)
	}
	s.logger.Debug().Str("exchange", row.Code).Msg("Exchange upserted")
	return row, nil
}

// --- Symbols ---

func (s *Store) FindSymbol(ctx context.Context, code string) (*models.SymbolRow, error) {
	row, err := surrealdb.Select[models.SymbolRow](ctx, s.db, surrealmodels.NewRecordID("symbol", code))
	if err != nil {
		return nil, fmt.Errorf("failed to select symbol '%s': %w", code, err)
	}
	if row == nil || row.Code == "" {
		return nil, nil
	}
	return row, nil
}

func (s *Store) ListSymbolsByExchange(ctx context.Context, exchangeCode string) ([]*models.SymbolRow, error) {
	sql := "SELECT * FROM symbol WHERE exchange_code = $exchange ORDER BY code ASC"
	vars := map[string]any{"exchange": exchangeCode}

	results, err := surrealdb.Query[[]models.SymbolRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols for exchange '%s': %w", exchangeCode, err)
	}

	var rows []*models.SymbolRow
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			rows = append(rows, &(*results)[0].Result[i])
		}
	}
	return rows, nil
}

func (s *Store) UpsertSymbol(ctx context.Context, exchange *models.ExchangeRow, sym *models.Symbol) (*models.SymbolRow, error) {
	code := trimmedSymbolCode(sym)
	row, err := s.FindSymbol(ctx, code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.SymbolRow{ID: uuid.New().String()}
	}
	row.Apply(exchange, sym)
	row.UpdatedAt = time.Now()

	if err := s.upsert(ctx, surrealmodels.NewRecordID("symbol", row.Code), row); err != nil {
		return nil, fmt.Errorf("failed to upsert symbol '%s': %w", row.Code, err)
	}
	return row, nil
}

// --- Price bars ---

func (s *Store) LastPrice(ctx context.Context, symbolCode string) (*models.PriceBarRow, error) {
	sql := "SELECT * FROM price WHERE symbol_code = $symbol ORDER BY date DESC LIMIT 1"
	vars := map[string]any{"symbol": symbolCode}

	results, err := surrealdb.Query[[]models.PriceBarRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query last price for '%s': %w", symbolCode, err)
	}

	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return &(*results)[0].Result[0], nil
	}
	return nil, nil
}

func (s *Store) UpsertPrice(ctx context.Context, symbol *models.SymbolRow, bar *models.PriceBar) (*models.PriceBarRow, error) {
	key := priceKey(symbol.Code, bar.Date)
	existing, err := surrealdb.Select[models.PriceBarRow](ctx, s.db, surrealmodels.NewRecordID("price", key))
	if err != nil {
		return nil, fmt.Errorf("failed to select price '%s': %w", key, err)
	}

	row := existing
	if row == nil || row.SymbolCode == "" {
		row = &models.PriceBarRow{ID: uuid.New().String()}
	}
	row.Apply(symbol, bar)
	row.StoredAt = time.Now()

	if err := s.upsert(ctx, surrealmodels.NewRecordID("price", key), row); err != nil {
		return nil, fmt.Errorf("failed to upsert price '%s': %w", key, err)
	}
	return row, nil
}

// --- Sync run history ---

func (s *Store) SaveSyncReport(ctx context.Context, report *models.SyncReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if err := s.upsert(ctx, surrealmodels.NewRecordID("sync_report", report.ID), report); err != nil {
		return fmt.Errorf("failed to save sync report: %w", err)
	}
	return nil
}

func (s *Store) ListSyncReports(ctx context.Context, limit int) ([]*models.SyncReport, error) {
	sql := "SELECT * FROM sync_report ORDER BY started_at DESC LIMIT $limit"
	vars := map[string]any{"limit": limit}

	results, err := surrealdb.Query[[]models.SyncReport](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync reports: %w", err)
	}

	var reports []*models.SyncReport
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			reports = append(reports, &(*results)[0].Result[i])
		}
	}
	return reports, nil
}

// trimmedSymbolCode matches the canonical stored form used by SymbolRow.Apply.
func trimmedSymbolCode(sym *models.Symbol) string {
	return strings.TrimSpace(sym.Code)
}

// priceKey builds the record key for a (symbol code, date) pair.
func priceKey(symbolCode string, date time.Time) string {
	return symbolCode + ":" + date.Format("2006-01-02")
}

func (s *Store) Close() error {
	s.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.RefStore = (*Store)(nil)
