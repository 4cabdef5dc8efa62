package facts

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kabuto-ai/kabuto/pkg/dataflows"
)

func fullBundle() *dataflows.Bundle {
	return &dataflows.Bundle{
		Statements: &dataflows.Statements{
			CompanyName: "トヨタ自動車",
			FiscalYear:  "2025-03",
			FilingDate:  "2025-06-25",
			ROE:         11.8,
			EPS:         365.9,
		},
		Disclosures: []dataflows.Disclosure{
			{Date: "2025-08-01", Title: "2026年3月期 第1四半期決算短信"},
		},
		StockPrice: &dataflows.PriceData{
			CurrentPrice: decimal.NewFromInt(2850),
			High:         decimal.NewFromInt(2880),
			Low:          decimal.NewFromInt(2810),
			PETrailing:   9.4,
			AsOf:         time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC),
		},
		FX: &dataflows.FXRates{
			Date:  "2025-08-28",
			Rates: map[string]float64{"JPY": 147.2},
		},
	}
}

func TestBuildSummaryContainsSourceLabels(t *testing.T) {
	summary := BuildSummary(fullBundle(), "7203", "ja")

	assert.Contains(t, summary, "トヨタ自動車")
	assert.Contains(t, summary, "ROE: 11.8%")
	assert.Contains(t, summary, "`EDINET 2025-06-25`")
	assert.Contains(t, summary, "`yfinance 2025-08-28`")
	assert.Contains(t, summary, "`FX 2025-08-28`")
	assert.Contains(t, summary, "決算短信")
	assert.Contains(t, summary, "¥2850")
	assert.Contains(t, summary, "147.20")
}

func TestBuildSummaryOmitsMissingSources(t *testing.T) {
	bundle := &dataflows.Bundle{
		Statements: &dataflows.Statements{
			CompanyName: "ソニーグループ",
			FilingDate:  "2025-06-20",
		},
	}
	summary := BuildSummary(bundle, "6758", "ja")

	assert.Contains(t, summary, "ソニーグループ")
	assert.NotContains(t, summary, "yfinance")
	assert.NotContains(t, summary, "TDNET")
	assert.NotContains(t, summary, "FX")
}

func TestBuildSummaryEnglishLabels(t *testing.T) {
	summary := BuildSummary(fullBundle(), "7203", "en")
	assert.Contains(t, summary, "Verified Data Summary")
	// Source labels stay stable across languages so fact citations match.
	assert.Contains(t, summary, "`EDINET 2025-06-25`")
}

func TestBuildSummarySectorNote(t *testing.T) {
	bundle := fullBundle()
	bundle.StockPrice.Sector = "Financial Services"
	summary := BuildSummary(bundle, "8306", "ja")
	assert.NotEqual(t, summary, BuildSummary(fullBundle(), "8306", "ja"))
}

func TestBuildSummaryZeroRatiosOmitted(t *testing.T) {
	bundle := fullBundle()
	bundle.Statements.ROE = 0
	summary := BuildSummary(bundle, "7203", "ja")
	assert.False(t, strings.Contains(summary, "ROE"), "zero ROE should be omitted")
}
