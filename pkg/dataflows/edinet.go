package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const edinetBaseURL = "https://api.edinet-fsa.go.jp/api/v2"

// Annual securities report (有価証券報告書).
const docTypeAnnualReport = "120"

// EdinetClient reads filing metadata from the EDINET document list API.
// Full XBRL parsing is out of scope; the statements payload carries the
// filing identity used for source labels.
type EdinetClient struct {
	client *resty.Client
	apiKey string
}

func NewEdinetClient(apiKey string) *EdinetClient {
	return &EdinetClient{
		client: resty.New().SetBaseURL(edinetBaseURL).SetTimeout(20 * time.Second),
		apiKey: apiKey,
	}
}

type edinetDocument struct {
	DocID          string `json:"docID"`
	EdinetCode     string `json:"edinetCode"`
	SecCode        string `json:"secCode"`
	FilerName      string `json:"filerName"`
	DocTypeCode    string `json:"docTypeCode"`
	DocDescription string `json:"docDescription"`
	PeriodEnd      string `json:"periodEnd"`
	SubmitDateTime string `json:"submitDateTime"`
}

type edinetListResponse struct {
	Results []edinetDocument `json:"results"`
}

// ResolveFilerCode scans recent filing days for a document whose securities
// code matches the given stock code and returns the filer's EDINET code.
func (e *EdinetClient) ResolveFilerCode(ctx context.Context, code string) (string, error) {
	// EDINET lists securities codes with a trailing check digit.
	secCode := code + "0"

	day := time.Now()
	for i := 0; i < 30; i++ {
		docs, err := e.listDocuments(ctx, day)
		if err != nil {
			return "", err
		}
		for _, doc := range docs {
			if doc.SecCode == secCode && doc.EdinetCode != "" {
				return doc.EdinetCode, nil
			}
		}
		day = day.AddDate(0, 0, -1)
	}
	return "", fmt.Errorf("no EDINET filer found for code %s", code)
}

// GetStatements returns the latest annual report identity for a filer.
func (e *EdinetClient) GetStatements(ctx context.Context, edinetCode string) (*Statements, error) {
	day := time.Now()
	for i := 0; i < 370; i += 7 {
		docs, err := e.listDocuments(ctx, day.AddDate(0, 0, -i))
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if doc.EdinetCode != edinetCode || doc.DocTypeCode != docTypeAnnualReport {
				continue
			}
			return &Statements{
				CompanyName: doc.FilerName,
				FiscalYear:  fiscalYearFromDescription(doc.DocDescription, doc.PeriodEnd),
				FilingDate:  filingDate(doc.SubmitDateTime),
			}, nil
		}
	}
	return nil, fmt.Errorf("no annual report found for %s", edinetCode)
}

func (e *EdinetClient) listDocuments(ctx context.Context, day time.Time) ([]edinetDocument, error) {
	var out edinetListResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"date": day.Format("2006-01-02"),
			"type": "2",
		}).
		SetHeader("Ocp-Apim-Subscription-Key", e.apiKey).
		SetResult(&out).
		Get("/documents.json")
	if err != nil {
		return nil, fmt.Errorf("edinet list: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("edinet list: status %s", resp.Status())
	}
	return out.Results, nil
}

func fiscalYearFromDescription(description, periodEnd string) string {
	if periodEnd != "" {
		return periodEnd
	}
	return strings.TrimSpace(description)
}

func filingDate(submitDateTime string) string {
	if len(submitDateTime) >= 10 {
		return submitDateTime[:10]
	}
	return submitDateTime
}
