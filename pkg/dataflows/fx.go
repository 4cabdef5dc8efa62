package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const frankfurterURL = "https://api.frankfurter.app/latest"

// FXClient fetches current exchange rates against the US dollar.
type FXClient struct {
	client *resty.Client
}

func NewFXClient() *FXClient {
	return &FXClient{
		client: resty.New().SetTimeout(15 * time.Second),
	}
}

func (f *FXClient) GetRates(ctx context.Context) (*FXRates, error) {
	var out FXRates
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"base":    "USD",
			"symbols": "JPY,EUR,CNY",
		}).
		SetResult(&out).
		Get(frankfurterURL)
	if err != nil {
		return nil, fmt.Errorf("fx rates: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fx rates: status %s", resp.Status())
	}
	if len(out.Rates) == 0 {
		return nil, fmt.Errorf("fx rates: empty response")
	}
	return &out, nil
}
