package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
)

// YahooClient pulls current quote and valuation data from Yahoo Finance.
type YahooClient struct{}

func NewYahooClient() *YahooClient {
	return &YahooClient{}
}

// GetQuote fetches the current quote for a Japanese stock code.
// The finance-go transport does not accept a context; the deadline is
// checked before issuing the call.
func (y *YahooClient) GetQuote(ctx context.Context, code string) (*PriceData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	symbol := NormalizeSymbol(code)
	q, err := equity.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if q == nil {
		return nil, fmt.Errorf("yahoo quote %s: empty response", symbol)
	}

	return &PriceData{
		Symbol:       symbol,
		CurrentPrice: decimal.NewFromFloat(q.RegularMarketPrice),
		Open:         decimal.NewFromFloat(q.RegularMarketOpen),
		High:         decimal.NewFromFloat(q.RegularMarketDayHigh),
		Low:          decimal.NewFromFloat(q.RegularMarketDayLow),
		Close:        decimal.NewFromFloat(q.RegularMarketPrice),
		Volume:       int64(q.RegularMarketVolume),
		Week52High:   decimal.NewFromFloat(q.FiftyTwoWeekHigh),
		Week52Low:    decimal.NewFromFloat(q.FiftyTwoWeekLow),
		PETrailing:   q.TrailingPE,
		PEForward:    q.ForwardPE,
		PriceToBook:  q.PriceToBook,
		MarketCap:    float64(q.MarketCap),
		AsOf:         time.Now(),
	}, nil
}

// NormalizeSymbol maps a bare Japanese stock code to its Yahoo ticker.
func NormalizeSymbol(code string) string {
	if strings.Contains(code, ".") {
		return code
	}
	return code + ".T"
}
