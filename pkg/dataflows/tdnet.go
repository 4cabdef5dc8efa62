package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const tdnetBaseURL = "https://webapi.yanoshin.jp/webapi/tdnet"

// TdnetClient lists timely disclosures for a stock code. TDNET entries carry
// titles only; they hold no financial figures.
type TdnetClient struct {
	client *resty.Client
}

func NewTdnetClient() *TdnetClient {
	return &TdnetClient{
		client: resty.New().SetBaseURL(tdnetBaseURL).SetTimeout(20 * time.Second),
	}
}

type tdnetEntry struct {
	Tdnet struct {
		PubDate     string `json:"pubdate"`
		Title       string `json:"title"`
		DocumentURL string `json:"document_url"`
	} `json:"Tdnet"`
}

type tdnetListResponse struct {
	Items []tdnetEntry `json:"items"`
}

func (t *TdnetClient) GetDisclosures(ctx context.Context, code string) ([]Disclosure, error) {
	var out tdnetListResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParam("limit", "20").
		SetResult(&out).
		Get(fmt.Sprintf("/list/%s.json", code))
	if err != nil {
		return nil, fmt.Errorf("tdnet list: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tdnet list: status %s", resp.Status())
	}

	disclosures := make([]Disclosure, 0, len(out.Items))
	for _, item := range out.Items {
		disclosures = append(disclosures, Disclosure{
			Date:  disclosureDate(item.Tdnet.PubDate),
			Title: item.Tdnet.Title,
			URL:   item.Tdnet.DocumentURL,
		})
	}
	return disclosures, nil
}

func disclosureDate(pubdate string) string {
	if len(pubdate) >= 10 {
		return pubdate[:10]
	}
	return pubdate
}
