package refdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/models"
)

func newUnitTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	logger := common.NewSilentLogger()
	store, err := NewStore(logger, dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestExchangeUpsert(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	ex := &models.Exchange{Code: "BATS", Region: "US", Description: "Cboe BZX", MIC: "BATS"}
	row, err := store.UpsertExchange(ctx, ex)
	if err != nil {
		t.Fatalf("UpsertExchange: %v", err)
	}
	if row.ID == "" {
		t.Error("ID should be assigned on first insert")
	}
	if row.Code != "BATS" {
		t.Errorf("code = %q, want BATS", row.Code)
	}

	// Re-upsert overwrites attributes but preserves identity
	ex.Description = "Cboe BZX Exchange"
	again, err := store.UpsertExchange(ctx, ex)
	if err != nil {
		t.Fatalf("UpsertExchange update: %v", err)
	}
	if again.ID != row.ID {
		t.Errorf("identity changed on re-upsert: %s vs %s", again.ID, row.ID)
	}
	if again.Description != "Cboe BZX Exchange" {
		t.Error("Description not updated")
	}

	rows, err := store.ListExchanges(ctx)
	if err != nil {
		t.Fatalf("ListExchanges: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 exchange, got %d", len(rows))
	}
}

func TestFindExchangeAbsent(t *testing.T) {
	store := newUnitTestStore(t)

	row, err := store.FindExchange(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("FindExchange: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil for absent exchange, got %+v", row)
	}
}

func TestSymbolUpsertTrimsFields(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	exRow, err := store.UpsertExchange(ctx, &models.Exchange{Code: "BATS", Region: "US"})
	if err != nil {
		t.Fatalf("UpsertExchange: %v", err)
	}

	sym := &models.Symbol{
		Code:     "  ACWV  ",
		Exchange: "BATS",
		Name:     " iShares MSCI Global Min Vol Factor ETF ",
		Date:     day("2022-09-03"),
		Enabled:  true,
		Type:     " et",
		Region:   "US ",
		Currency: " USD ",
	}
	row, err := store.UpsertSymbol(ctx, exRow, sym)
	if err != nil {
		t.Fatalf("UpsertSymbol: %v", err)
	}
	if row.Code != "ACWV" {
		t.Errorf("code = %q, want trimmed ACWV", row.Code)
	}
	if row.Name != "iShares MSCI Global Min Vol Factor ETF" {
		t.Errorf("name not trimmed: %q", row.Name)
	}
	if row.Type != "et" || row.Region != "US" || row.Currency != "USD" {
		t.Errorf("fields not trimmed: %+v", row)
	}
	if row.ExchangeID != exRow.ID || row.ExchangeCode != "BATS" {
		t.Errorf("exchange linkage wrong: %+v", row)
	}

	// Padded and trimmed forms address the same row
	found, err := store.FindSymbol(ctx, "ACWV")
	if err != nil {
		t.Fatalf("FindSymbol: %v", err)
	}
	if found == nil || found.ID != row.ID {
		t.Error("trimmed code should address the stored row")
	}
}

func TestSymbolUpsertPreservesIdentity(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	exRow, _ := store.UpsertExchange(ctx, &models.Exchange{Code: "BATS"})
	sym := &models.Symbol{Code: "ACWV", Exchange: "BATS", Name: "v1", Date: day("2022-09-03")}

	first, err := store.UpsertSymbol(ctx, exRow, sym)
	if err != nil {
		t.Fatalf("UpsertSymbol: %v", err)
	}

	sym.Name = "v2"
	second, err := store.UpsertSymbol(ctx, exRow, sym)
	if err != nil {
		t.Fatalf("UpsertSymbol update: %v", err)
	}
	if second.ID != first.ID {
		t.Error("identity should be preserved on re-upsert")
	}
	if second.Name != "v2" {
		t.Error("Name not updated")
	}

	rows, _ := store.ListSymbolsByExchange(ctx, "BATS")
	if len(rows) != 1 {
		t.Errorf("expected 1 symbol, got %d", len(rows))
	}
}

func TestPriceUpsertKeyedByDate(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	exRow, _ := store.UpsertExchange(ctx, &models.Exchange{Code: "BATS"})
	symRow, _ := store.UpsertSymbol(ctx, exRow, &models.Symbol{Code: "ACWV", Exchange: "BATS", Date: day("2022-09-03")})

	bar := &models.PriceBar{Symbol: "ACWV", Date: day("2025-08-28"), Open: 100, Close: 101, Volume: 1000}
	first, err := store.UpsertPrice(ctx, symRow, bar)
	if err != nil {
		t.Fatalf("UpsertPrice: %v", err)
	}
	if first.SymbolCode != "ACWV" || first.SymbolID != symRow.ID {
		t.Errorf("symbol linkage wrong: %+v", first)
	}

	// Same date again: overwrite, not append
	bar.Close = 102
	second, err := store.UpsertPrice(ctx, symRow, bar)
	if err != nil {
		t.Fatalf("UpsertPrice rerun: %v", err)
	}
	if second.ID != first.ID {
		t.Error("re-syncing a stored date should overwrite the same row")
	}
	if second.Close != 102 {
		t.Error("Close not updated")
	}

	// A different date is a new row
	other := &models.PriceBar{Symbol: "ACWV", Date: day("2025-08-29"), Close: 103}
	third, err := store.UpsertPrice(ctx, symRow, other)
	if err != nil {
		t.Fatalf("UpsertPrice new date: %v", err)
	}
	if third.ID == first.ID {
		t.Error("different dates must not share a row")
	}

	last, err := store.LastPrice(ctx, "ACWV")
	if err != nil {
		t.Fatalf("LastPrice: %v", err)
	}
	if last == nil || !last.Date.Equal(day("2025-08-29")) {
		t.Errorf("LastPrice should return the most recent bar, got %+v", last)
	}
}

func TestLastPriceAbsent(t *testing.T) {
	store := newUnitTestStore(t)

	last, err := store.LastPrice(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("LastPrice: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil for symbol with no bars, got %+v", last)
	}
}

func TestConcurrentPriceUpserts(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	exRow, _ := store.UpsertExchange(ctx, &models.Exchange{Code: "BATS"})
	symRow, _ := store.UpsertSymbol(ctx, exRow, &models.Symbol{Code: "ACWV", Exchange: "BATS", Date: day("2022-09-03")})

	// Hammer the same (symbol, date) key from several goroutines; the
	// striped lock must keep it a single row.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bar := &models.PriceBar{Symbol: "ACWV", Date: day("2025-08-28"), Close: float64(100 + n)}
			if _, err := store.UpsertPrice(ctx, symRow, bar); err != nil {
				t.Errorf("UpsertPrice: %v", err)
			}
		}(i)
	}
	wg.Wait()

	last, err := store.LastPrice(ctx, "ACWV")
	if err != nil {
		t.Fatalf("LastPrice: %v", err)
	}
	if last == nil {
		t.Fatal("expected a stored bar")
	}
}

func TestSyncReports(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		report := &models.SyncReport{
			StartedAt:  time.Now().Add(time.Duration(i) * time.Minute),
			FinishedAt: time.Now().Add(time.Duration(i)*time.Minute + 30*time.Second),
		}
		if err := store.SaveSyncReport(ctx, report); err != nil {
			t.Fatalf("SaveSyncReport: %v", err)
		}
		if report.ID == "" {
			t.Error("report ID should be assigned on save")
		}
	}

	reports, err := store.ListSyncReports(ctx, 2)
	if err != nil {
		t.Fatalf("ListSyncReports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].StartedAt.Before(reports[1].StartedAt) {
		t.Error("reports should be ordered most recent first")
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	logger := common.NewSilentLogger()

	_, err := NewStore(logger, "/dev/null/impossible")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestCloseNilDB(t *testing.T) {
	store := &Store{}
	if err := store.Close(); err != nil {
		t.Errorf("Close on nil db should not error: %v", err)
	}
}
