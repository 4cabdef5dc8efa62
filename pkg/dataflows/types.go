package dataflows

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Statements holds the latest annual report figures from EDINET.
type Statements struct {
	CompanyName      string  `json:"company_name"`
	FiscalYear       string  `json:"fiscal_year"`
	FilingDate       string  `json:"filing_date"`
	Revenue          float64 `json:"revenue,omitempty"`
	OperatingIncome  float64 `json:"operating_income,omitempty"`
	NetIncome        float64 `json:"net_income,omitempty"`
	EPS              float64 `json:"eps,omitempty"`
	ROE              float64 `json:"roe,omitempty"`
	EquityRatio      float64 `json:"equity_ratio,omitempty"`
	DividendPerShare float64 `json:"dividend_per_share,omitempty"`
}

// Disclosure is one timely-disclosure entry from TDNET.
type Disclosure struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// PriceData is the current market snapshot for a symbol.
type PriceData struct {
	Symbol       string          `json:"symbol"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Volume       int64           `json:"volume"`
	Week52High   decimal.Decimal `json:"week52_high"`
	Week52Low    decimal.Decimal `json:"week52_low"`
	PETrailing   float64         `json:"pe_trailing,omitempty"`
	PEForward    float64         `json:"pe_forward,omitempty"`
	PriceToBook  float64         `json:"pbr,omitempty"`
	MarketCap    float64         `json:"market_cap,omitempty"`
	Sector       string          `json:"sector,omitempty"`
	AsOf         time.Time       `json:"as_of"`
}

// NewsItem is one headline from the news scraper.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// MacroData carries e-Stat table metadata. The API only exposes table
// listings without values, so agents must not cite macro numbers from it.
type MacroData struct {
	TableName  string `json:"table_name"`
	SurveyDate string `json:"survey_date,omitempty"`
	StatName   string `json:"stat_name,omitempty"`
}

// FXRates holds current exchange rates against the base currency.
type FXRates struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Bundle is the result of one FetchAll run. A nil field means the source
// returned nothing, failed, or timed out.
type Bundle struct {
	Statements  *Statements  `json:"statements,omitempty"`
	Disclosures []Disclosure `json:"disclosures,omitempty"`
	StockPrice  *PriceData   `json:"stock_price,omitempty"`
	News        []NewsItem   `json:"news,omitempty"`
	Macro       []MacroData  `json:"macro,omitempty"`
	FX          *FXRates     `json:"fx,omitempty"`
}

// SourcesUsed lists the sources that contributed data, in a fixed order.
func (b *Bundle) SourcesUsed() []string {
	var used []string
	if b.Statements != nil {
		used = append(used, "statements")
	}
	if len(b.Disclosures) > 0 {
		used = append(used, "disclosures")
	}
	if b.StockPrice != nil {
		used = append(used, "stock_price")
	}
	if len(b.News) > 0 {
		used = append(used, "news")
	}
	if len(b.Macro) > 0 {
		used = append(used, "macro")
	}
	if b.FX != nil {
		used = append(used, "fx")
	}
	return used
}

// CurrentPrice returns the current price as a float, or nil when absent.
func (b *Bundle) CurrentPrice() *float64 {
	if b.StockPrice == nil {
		return nil
	}
	p, _ := b.StockPrice.CurrentPrice.Float64()
	if p <= 0 {
		return nil
	}
	return &p
}

// Raw converts the bundle into the generic payload stored on the analysis
// result, matching the shape produced when a snapshot is read back from disk.
func (b *Bundle) Raw() map[string]any {
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
