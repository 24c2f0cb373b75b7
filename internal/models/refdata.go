// Package models defines data structures for marketsync
package models

import (
	"strings"
	"time"
)

// Exchange is a trading venue record as returned by the market-data provider.
type Exchange struct {
	Code        string `json:"code"`
	Region      string `json:"region"`
	Description string `json:"description"`
	MIC         string `json:"mic"`
	Suffix      string `json:"suffix"`
}

// ExchangeRow is a persisted exchange. Identity is assigned by the store on
// first insert; Code is the unique upsert key. The identity field is tagged
// uid rather than id so rows can be written to SurrealDB via CONTENT without
// colliding with the record id.
type ExchangeRow struct {
	ID          string    `json:"uid"`
	Code        string    `json:"code"`
	Region      string    `json:"region"`
	Description string    `json:"description"`
	MIC         string    `json:"mic"`
	Suffix      string    `json:"suffix"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Apply overwrites the row's mutable attributes from a provider record.
func (r *ExchangeRow) Apply(ex *Exchange) {
	r.Code = ex.Code
	r.Region = ex.Region
	r.Description = ex.Description
	r.MIC = ex.MIC
	r.Suffix = ex.Suffix
}

// Symbol is a tradable instrument record as returned by the provider.
// String fields may carry padding; they are trimmed on persistence.
type Symbol struct {
	Code       string    `json:"code"`
	Exchange   string    `json:"exchange"`
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	Enabled    bool      `json:"is_enabled"`
	Type       string    `json:"type"`
	Region     string    `json:"region"`
	Currency   string    `json:"currency"`
	ProviderID string    `json:"provider_id,omitempty"`
	IssuerID   string    `json:"issuer_id,omitempty"`
	FIGI       string    `json:"figi,omitempty"`
	LEI        string    `json:"lei,omitempty"`
}

// SymbolRow is a persisted symbol. Code is unique across the store (not
// scoped per exchange); ExchangeID/ExchangeCode reference the owning venue.
type SymbolRow struct {
	ID           string    `json:"uid"`
	Code         string    `json:"code"`
	ExchangeID   string    `json:"exchange_id"`
	ExchangeCode string    `json:"exchange_code"`
	Name         string    `json:"name"`
	ListedDate   time.Time `json:"listing_date"`
	Enabled      bool      `json:"is_enabled"`
	Type         string    `json:"type"`
	Region       string    `json:"region"`
	Currency     string    `json:"currency"`
	ProviderID   string    `json:"provider_id,omitempty"`
	IssuerID     string    `json:"issuer_id,omitempty"`
	FIGI         string    `json:"figi,omitempty"`
	LEI          string    `json:"lei,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Apply overwrites the row's mutable attributes from a provider record,
// trimming string fields. The provider pads some values with whitespace;
// trimmed values are the canonical stored form.
func (r *SymbolRow) Apply(exchange *ExchangeRow, sym *Symbol) {
	r.Code = strings.TrimSpace(sym.Code)
	r.ExchangeID = exchange.ID
	r.ExchangeCode = exchange.Code
	r.Name = strings.TrimSpace(sym.Name)
	r.ListedDate = sym.Date
	r.Enabled = sym.Enabled
	r.Type = strings.TrimSpace(sym.Type)
	r.Region = strings.TrimSpace(sym.Region)
	r.Currency = strings.TrimSpace(sym.Currency)
	r.ProviderID = strings.TrimSpace(sym.ProviderID)
	r.IssuerID = strings.TrimSpace(sym.IssuerID)
	r.FIGI = strings.TrimSpace(sym.FIGI)
	r.LEI = strings.TrimSpace(sym.LEI)
}

// SymbolProjection is the minimal attribute set passed between pipeline
// stages, distinct from the full persisted row. Exchange carries the venue
// code, not its internal identity.
type SymbolProjection struct {
	ID       string    `json:"id"`
	Code     string    `json:"code"`
	Exchange string    `json:"exchange"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	Enabled  bool      `json:"is_enabled"`
	Type     string    `json:"type"`
	Region   string    `json:"region"`
	Currency string    `json:"currency"`
}

// Projection derives the stage hand-off view of a stored symbol.
func (r *SymbolRow) Projection() *SymbolProjection {
	return &SymbolProjection{
		ID:       r.ID,
		Code:     r.Code,
		Exchange: r.ExchangeCode,
		Name:     r.Name,
		Date:     r.ListedDate,
		Enabled:  r.Enabled,
		Type:     r.Type,
		Region:   r.Region,
		Currency: r.Currency,
	}
}

// PriceBar is one trading day's OHLCV for a symbol as returned by the
// provider, with adjustment variants: plain fields are as-reported adjusted
// values, FullyUnadjusted* are unadjusted for splits and dividends, and
// Unadjusted* are unadjusted for dividends only.
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	Low    float64   `json:"low"`
	High   float64   `json:"high"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`

	FullyUnadjustedOpen   float64 `json:"fully_unadjusted_open,omitempty"`
	FullyUnadjustedLow    float64 `json:"fully_unadjusted_low,omitempty"`
	FullyUnadjustedHigh   float64 `json:"fully_unadjusted_high,omitempty"`
	FullyUnadjustedClose  float64 `json:"fully_unadjusted_close,omitempty"`
	FullyUnadjustedVolume int64   `json:"fully_unadjusted_volume,omitempty"`

	UnadjustedOpen   float64 `json:"unadjusted_open,omitempty"`
	UnadjustedLow    float64 `json:"unadjusted_low,omitempty"`
	UnadjustedHigh   float64 `json:"unadjusted_high,omitempty"`
	UnadjustedClose  float64 `json:"unadjusted_close,omitempty"`
	UnadjustedVolume int64   `json:"unadjusted_volume,omitempty"`

	PriceDate time.Time `json:"price_date,omitempty"`
	Updated   int64     `json:"updated,omitempty"`
}

// PriceBarRow is a persisted price bar, keyed by (symbol code, date).
type PriceBarRow struct {
	ID         string    `json:"uid"`
	SymbolID   string    `json:"symbol_id"`
	SymbolCode string    `json:"symbol_code"`
	Date       time.Time `json:"date"`
	Open       float64   `json:"open"`
	Low        float64   `json:"low"`
	High       float64   `json:"high"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`

	FullyUnadjustedOpen   float64 `json:"fully_unadjusted_open,omitempty"`
	FullyUnadjustedLow    float64 `json:"fully_unadjusted_low,omitempty"`
	FullyUnadjustedHigh   float64 `json:"fully_unadjusted_high,omitempty"`
	FullyUnadjustedClose  float64 `json:"fully_unadjusted_close,omitempty"`
	FullyUnadjustedVolume int64   `json:"fully_unadjusted_volume,omitempty"`

	UnadjustedOpen   float64 `json:"unadjusted_open,omitempty"`
	UnadjustedLow    float64 `json:"unadjusted_low,omitempty"`
	UnadjustedHigh   float64 `json:"unadjusted_high,omitempty"`
	UnadjustedClose  float64 `json:"unadjusted_close,omitempty"`
	UnadjustedVolume int64   `json:"unadjusted_volume,omitempty"`

	PriceDate time.Time `json:"price_date,omitempty"`
	Updated   int64     `json:"updated,omitempty"`
	StoredAt  time.Time `json:"stored_at"`
}

// Apply overwrites the row from a provider bar for the given symbol.
func (r *PriceBarRow) Apply(symbol *SymbolRow, bar *PriceBar) {
	r.SymbolID = symbol.ID
	r.SymbolCode = symbol.Code
	r.Date = bar.Date
	r.Open = bar.Open
	r.Low = bar.Low
	r.High = bar.High
	r.Close = bar.Close
	r.Volume = bar.Volume
	r.FullyUnadjustedOpen = bar.FullyUnadjustedOpen
	r.FullyUnadjustedLow = bar.FullyUnadjustedLow
	r.FullyUnadjustedHigh = bar.FullyUnadjustedHigh
	r.FullyUnadjustedClose = bar.FullyUnadjustedClose
	r.FullyUnadjustedVolume = bar.FullyUnadjustedVolume
	r.UnadjustedOpen = bar.UnadjustedOpen
	r.UnadjustedLow = bar.UnadjustedLow
	r.UnadjustedHigh = bar.UnadjustedHigh
	r.UnadjustedClose = bar.UnadjustedClose
	r.UnadjustedVolume = bar.UnadjustedVolume
	r.PriceDate = bar.PriceDate
	r.Updated = bar.Updated
}
