// Package iexcloud provides a client for the IEX Cloud reference-data API
package iexcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/interfaces"
	"github.com/bobmcallan/marketsync/internal/models"
)

const (
	DefaultBaseURL   = "https://cloud.iexapis.com/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	dateLayout = "2006-01-02"
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new IEX Cloud client. The token is held by the client
// and attached to every request; callers never handle it again.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("IEX Cloud API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("IEX Cloud API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// exchangeResponse represents the API response for the exchange list
type exchangeResponse struct {
	Exchange    string `json:"exchange"`
	Region      string `json:"region"`
	Description string `json:"description"`
	MIC         string `json:"mic"`
	Suffix      string `json:"exchangeSuffix"`
}

// ListExchanges retrieves the full exchange list
func (c *Client) ListExchanges(ctx context.Context) ([]*models.Exchange, error) {
	var resp []exchangeResponse
	if err := c.get(ctx, "/ref-data/exchanges", nil, &resp); err != nil {
		return nil, err
	}

	exchanges := make([]*models.Exchange, 0, len(resp))
	for _, ex := range resp {
		if ex.Exchange == "" {
			c.logger.Debug().Str("mic", ex.MIC).Msg("Skipping exchange record without code")
			continue
		}
		exchanges = append(exchanges, &models.Exchange{
			Code:        ex.Exchange,
			Region:      ex.Region,
			Description: ex.Description,
			MIC:         ex.MIC,
			Suffix:      ex.Suffix,
		})
	}

	return exchanges, nil
}

// symbolResponse represents the API response for an exchange's symbol list
type symbolResponse struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Enabled  bool   `json:"isEnabled"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
	IEXID    string `json:"iexId"`
	CIK      string `json:"cik"`
	FIGI     string `json:"figi"`
	LEI      string `json:"lei"`
}

// ListSymbols retrieves all symbols listed on an exchange
func (c *Client) ListSymbols(ctx context.Context, exchangeCode string) ([]*models.Symbol, error) {
	path := fmt.Sprintf("/ref-data/exchange/%s/symbols", url.PathEscape(exchangeCode))

	var resp []symbolResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	symbols := make([]*models.Symbol, 0, len(resp))
	for _, sym := range resp {
		if sym.Symbol == "" {
			c.logger.Debug().Str("exchange", exchangeCode).Msg("Skipping symbol record without code")
			continue
		}
		date, err := time.Parse(dateLayout, sym.Date)
		if err != nil {
			c.logger.Debug().Str("symbol", sym.Symbol).Str("date", sym.Date).Msg("Skipping symbol record with bad listing date")
			continue
		}
		symbols = append(symbols, &models.Symbol{
			Code:       sym.Symbol,
			Exchange:   sym.Exchange,
			Name:       sym.Name,
			Date:       date,
			Enabled:    sym.Enabled,
			Type:       sym.Type,
			Region:     sym.Region,
			Currency:   sym.Currency,
			ProviderID: sym.IEXID,
			IssuerID:   sym.CIK,
			FIGI:       sym.FIGI,
			LEI:        sym.LEI,
		})
	}

	return symbols, nil
}

// chartBarResponse represents the API response for daily chart bars
type chartBarResponse struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`

	FOpen   float64 `json:"fOpen"`
	FLow    float64 `json:"fLow"`
	FHigh   float64 `json:"fHigh"`
	FClose  float64 `json:"fClose"`
	FVolume int64   `json:"fVolume"`

	UOpen   float64 `json:"uOpen"`
	ULow    float64 `json:"uLow"`
	UHigh   float64 `json:"uHigh"`
	UClose  float64 `json:"uClose"`
	UVolume int64   `json:"uVolume"`

	PriceDate string `json:"priceDate"`
	Updated   int64  `json:"updated"`
}

func (c *Client) convertBars(symbolCode string, resp []chartBarResponse) []*models.PriceBar {
	bars := make([]*models.PriceBar, 0, len(resp))
	for _, bar := range resp {
		date, err := time.Parse(dateLayout, bar.Date)
		if err != nil {
			c.logger.Debug().Str("symbol", symbolCode).Str("date", bar.Date).Msg("Skipping price bar with bad date")
			continue
		}
		priceDate, _ := time.Parse(dateLayout, bar.PriceDate)
		bars = append(bars, &models.PriceBar{
			Symbol:                symbolCode,
			Date:                  date,
			Open:                  bar.Open,
			Low:                   bar.Low,
			High:                  bar.High,
			Close:                 bar.Close,
			Volume:                bar.Volume,
			FullyUnadjustedOpen:   bar.FOpen,
			FullyUnadjustedLow:    bar.FLow,
			FullyUnadjustedHigh:   bar.FHigh,
			FullyUnadjustedClose:  bar.FClose,
			FullyUnadjustedVolume: bar.FVolume,
			UnadjustedOpen:        bar.UOpen,
			UnadjustedLow:         bar.ULow,
			UnadjustedHigh:        bar.UHigh,
			UnadjustedClose:       bar.UClose,
			UnadjustedVolume:      bar.UVolume,
			PriceDate:             priceDate,
			Updated:               bar.Updated,
		})
	}
	return bars
}

// ListRangePrices retrieves daily price bars for a symbol over a named range
func (c *Client) ListRangePrices(ctx context.Context, symbolCode, rng string) ([]*models.PriceBar, error) {
	path := fmt.Sprintf("/stock/%s/chart/%s", url.PathEscape(symbolCode), url.PathEscape(rng))

	var resp []chartBarResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	return c.convertBars(symbolCode, resp), nil
}

// ListLastPrices retrieves the most recent n daily price bars for a symbol
func (c *Client) ListLastPrices(ctx context.Context, symbolCode string, n int) ([]*models.PriceBar, error) {
	path := fmt.Sprintf("/stock/%s/chart", url.PathEscape(symbolCode))

	params := url.Values{}
	params.Set("chartLast", strconv.Itoa(n))

	var resp []chartBarResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	return c.convertBars(symbolCode, resp), nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
