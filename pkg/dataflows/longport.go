package dataflows

import (
	"context"
	"errors"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/kabuto-ai/kabuto/config"
)

// LongportClient serves broker-grade quotes when Longport credentials are
// configured. It is optional; callers fall back to Yahoo when absent.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(cfg *config.Config) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

// GetQuote derives a price snapshot from the latest daily candlestick.
func (lpc *LongportClient) GetQuote(ctx context.Context, code string) (*PriceData, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}

	symbol := code + ".JP"
	sticks, err := lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, 1, quote.AdjustTypeNo)
	if err != nil {
		return nil, err
	}
	if len(sticks) == 0 {
		return nil, errors.New("no candlesticks returned")
	}

	last := sticks[len(sticks)-1]
	price := &PriceData{
		Symbol: symbol,
		Volume: last.Volume,
		AsOf:   time.Now(),
	}
	if last.Close != nil {
		price.CurrentPrice = *last.Close
		price.Close = *last.Close
	}
	if last.Open != nil {
		price.Open = *last.Open
	}
	if last.High != nil {
		price.High = *last.High
	}
	if last.Low != nil {
		price.Low = *last.Low
	}
	return price, nil
}
