// Package marketdata fetches latest share quotes from a Yahoo-Finance-style
// quote endpoint. Symbols are resolved against the NSE by default.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public quote endpoint.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultSuffix resolves plain symbols against the NSE.
	DefaultSuffix = ".NS"
)

// Quote is the latest traded price for one symbol.
type Quote struct {
	Symbol    string
	Price     float64
	Timestamp int64 // unix seconds of the last market update
}

// HTTPDoer abstracts the HTTP client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches quotes over HTTP.
type Client struct {
	baseURL    string
	suffix     string
	httpClient HTTPDoer
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the quote endpoint (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithSuffix overrides the exchange suffix appended to plain symbols.
func WithSuffix(suffix string) Option {
	return func(c *Client) { c.suffix = suffix }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient HTTPDoer) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a market-data client with sane defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		suffix:     DefaultSuffix,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// quoteResponse mirrors the provider's wire format.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			RegularMarketTime  int64   `json:"regularMarketTime"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// Quote returns the latest unit price for symbol. The symbol is upper-cased
// and suffixed with the exchange suffix before lookup.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, fmt.Errorf("symbol is required")
	}

	full := symbol
	if c.suffix != "" && !strings.HasSuffix(full, c.suffix) {
		full += c.suffix
	}

	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.baseURL, url.QueryEscape(full))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch quote for %s: %w", full, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote provider returned status %d for %s", resp.StatusCode, full)
	}

	var parsed quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Quote{}, fmt.Errorf("decode quote response for %s: %w", full, err)
	}

	if parsed.QuoteResponse.Error != nil {
		return Quote{}, fmt.Errorf("quote provider error for %s: %s", full, parsed.QuoteResponse.Error.Description)
	}
	if len(parsed.QuoteResponse.Result) == 0 {
		return Quote{}, fmt.Errorf("unknown ticker %s", full)
	}

	result := parsed.QuoteResponse.Result[0]
	if result.RegularMarketPrice <= 0 {
		return Quote{}, fmt.Errorf("no current price available for %s", full)
	}

	log.Debug().Str("symbol", full).Float64("price", result.RegularMarketPrice).Msg("quote fetched")

	return Quote{
		Symbol:    symbol,
		Price:     result.RegularMarketPrice,
		Timestamp: result.RegularMarketTime,
	}, nil
}
