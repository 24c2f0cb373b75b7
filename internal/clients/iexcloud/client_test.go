package iexcloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListExchanges(t *testing.T) {
	mockResp := `[
		{"exchange": "BATS", "region": "US", "description": "Cboe BZX", "mic": "BATS", "exchangeSuffix": ""},
		{"exchange": "AIXK", "region": "KZ", "description": "Astana International Exchange", "mic": "AIXK", "exchangeSuffix": ""},
		{"exchange": "", "region": "XX", "description": "bad record", "mic": "XXXX", "exchangeSuffix": ""}
	]`

	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ref-data/exchanges" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotToken = r.URL.Query().Get("token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mockResp))
	}))
	defer srv.Close()

	client := NewClient("pk_test", WithBaseURL(srv.URL))
	exchanges, err := client.ListExchanges(context.Background())
	if err != nil {
		t.Fatalf("ListExchanges failed: %v", err)
	}

	if gotToken != "pk_test" {
		t.Errorf("token = %q, want pk_test", gotToken)
	}

	// The record without a code is skipped
	if len(exchanges) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(exchanges))
	}
	if exchanges[0].Code != "BATS" {
		t.Errorf("code = %q, want BATS", exchanges[0].Code)
	}
	if exchanges[0].Region != "US" {
		t.Errorf("region = %q, want US", exchanges[0].Region)
	}
}

func TestListSymbols(t *testing.T) {
	mockResp := `[
		{"symbol": "ACWV", "exchange": "BATS", "name": "iShares MSCI Global Min Vol Factor ETF", "date": "2022-09-03",
		 "isEnabled": true, "type": "et", "region": "US", "currency": "USD",
		 "iexId": "IEX_53424D5052542D52", "cik": "0000913414", "figi": "BBG0025X38X0", "lei": "549300BPYHDEDI59G670"},
		{"symbol": "BROKEN", "exchange": "BATS", "name": "bad date", "date": "not-a-date",
		 "isEnabled": true, "type": "cs", "region": "US", "currency": "USD"}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ref-data/exchange/BATS/symbols" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mockResp))
	}))
	defer srv.Close()

	client := NewClient("pk_test", WithBaseURL(srv.URL))
	symbols, err := client.ListSymbols(context.Background(), "BATS")
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}

	// The record with an unparseable listing date is skipped
	if len(symbols) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(symbols))
	}

	sym := symbols[0]
	if sym.Code != "ACWV" {
		t.Errorf("code = %q, want ACWV", sym.Code)
	}
	if sym.Exchange != "BATS" {
		t.Errorf("exchange = %q, want BATS", sym.Exchange)
	}
	if sym.Date.Format("2006-01-02") != "2022-09-03" {
		t.Errorf("date = %s, want 2022-09-03", sym.Date.Format("2006-01-02"))
	}
	if sym.IssuerID != "0000913414" {
		t.Errorf("issuer id = %q, want 0000913414", sym.IssuerID)
	}
	if sym.FIGI != "BBG0025X38X0" {
		t.Errorf("figi = %q, want BBG0025X38X0", sym.FIGI)
	}
}

func TestListRangePrices(t *testing.T) {
	mockResp := `[
		{"date": "2025-08-28", "open": 100.5, "low": 99.1, "high": 102.3, "close": 101.7, "volume": 1500000,
		 "fOpen": 100.5, "fLow": 99.1, "fHigh": 102.3, "fClose": 101.7, "fVolume": 1500000,
		 "uOpen": 100.5, "uLow": 99.1, "uHigh": 102.3, "uClose": 101.7, "uVolume": 1500000,
		 "priceDate": "2025-08-28", "updated": 1756425600000},
		{"date": "2025-08-29", "open": 101.8, "low": 101.0, "high": 103.5, "close": 103.2, "volume": 1200000,
		 "priceDate": "2025-08-29", "updated": 1756512000000}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/ACWV/chart/5d" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mockResp))
	}))
	defer srv.Close()

	client := NewClient("pk_test", WithBaseURL(srv.URL))
	bars, err := client.ListRangePrices(context.Background(), "ACWV", "5d")
	if err != nil {
		t.Fatalf("ListRangePrices failed: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Symbol != "ACWV" {
		t.Errorf("symbol = %q, want ACWV", bars[0].Symbol)
	}
	if bars[0].Close != 101.7 {
		t.Errorf("close = %.2f, want 101.70", bars[0].Close)
	}
	if bars[0].FullyUnadjustedClose != 101.7 {
		t.Errorf("fully unadjusted close = %.2f, want 101.70", bars[0].FullyUnadjustedClose)
	}
	if bars[0].Updated != 1756425600000 {
		t.Errorf("updated = %d, want 1756425600000", bars[0].Updated)
	}
	if bars[1].Volume != 1200000 {
		t.Errorf("volume = %d, want 1200000", bars[1].Volume)
	}
}

func TestListLastPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/ACWV/chart" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("chartLast"); got != "3" {
			t.Errorf("chartLast = %q, want 3", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"date": "2025-08-29", "open": 1, "low": 1, "high": 1, "close": 1, "volume": 10}]`))
	}))
	defer srv.Close()

	client := NewClient("pk_test", WithBaseURL(srv.URL))
	bars, err := client.ListLastPrices(context.Background(), "ACWV", 3)
	if err != nil {
		t.Fatalf("ListLastPrices failed: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("The API key provided is not valid."))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.ListExchanges(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", apiErr.StatusCode)
	}
}
