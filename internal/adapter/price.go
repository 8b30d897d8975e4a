package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/ghostequity/ghostequity/internal/marketdata"
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
)

// PriceReport is the success payload of the value lookup.
type PriceReport struct {
	Success         bool    `json:"success"`
	TotalPrice      float64 `json:"total_price"`
	Symbol          string  `json:"symbol"`
	IndividualPrice float64 `json:"individual_price"`
	Timestamp       int64   `json:"timestamp"`
}

// PriceRequest carries the arguments of a value lookup.
type PriceRequest struct {
	Symbol   string `mapstructure:"symbol"`
	Quantity int64  `mapstructure:"quantity"`
}

// Validate implements Validator.
func (r PriceRequest) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if strings.EqualFold(strings.TrimSpace(r.Symbol), TickerNA) {
		return fmt.Errorf("symbol %q is not a live ticker", r.Symbol)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	return nil
}

// QuoteProvider is the slice of the market-data client the adapter needs.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (marketdata.Quote, error)
}

// NewPriceAdapter builds the get_value tool: latest unit price times the
// held quantity, from the market-data provider.
func NewPriceAdapter(quotes QuoteProvider) Tool {
	schema := &provider.ParameterSchema{
		Type: "object",
		Properties: map[string]provider.PropertySchema{
			"symbol":   {Type: "string", Description: "Stock ticker symbol (e.g., \"RELIANCE\")."},
			"quantity": {Type: "integer", Description: "Number of shares held."},
		},
		Required: []string{"symbol", "quantity"},
	}

	executor := func(ctx context.Context, req PriceRequest) (any, error) {
		quote, err := quotes.Quote(ctx, req.Symbol)
		if err != nil {
			return nil, err
		}

		return PriceReport{
			Success:         true,
			TotalPrice:      quote.Price * float64(req.Quantity),
			Symbol:          quote.Symbol,
			IndividualPrice: quote.Price,
			Timestamp:       quote.Timestamp,
		}, nil
	}

	return NewBaseAdapter(
		"get_value",
		"Fetch the current share price from the NSE for the given ticker symbol and compute the total value of the holding. Requires a live ticker; call check_company_status first to obtain one.",
		schema,
		executor,
	)
}
