// Package facts builds the source-labeled data summary that downstream
// agents treat as the sole authority for citable numbers.
package facts

import (
	"fmt"
	"strings"

	"github.com/kabuto-ai/kabuto/pkg/dataflows"
)

type labels struct {
	header        string
	headerNote    string
	edinetSection string
	tdnetSection  string
	tdnetNote     string
	priceSection  string
	fxSection     string
	macroSection  string
	macroNote     string
	company       string
	fiscalYear    string
	close         string
	high          string
	low           string
	week52High    string
	week52Low     string
	volume        string
	peTrailing    string
	peForward     string
	pbr           string
	marketCap     string
	usdJpy        string
}

var labelSets = map[string]labels{
	"ja": {
		header:        "## 検証済みデータ一覧",
		headerNote:    "**重要: key_factsの出典は必ずこの一覧から引用すること。一覧にない数値・事実の引用は禁止。**",
		edinetSection: "### EDINET財務データ",
		tdnetSection:  "### 適時開示 (TDNET)",
		tdnetNote:     "出典ラベル: `TDNET YYYY-MM-DD` ※開示タイトルのみ引用可。TDNETは財務数値を持たない。",
		priceSection:  "### 株価データ",
		fxSection:     "### 為替データ",
		macroSection:  "### マクロ統計 (e-Stat)",
		macroNote:     "※テーブルメタ情報のみ。具体的なGDP・CPI等の数値引用は禁止。",
		company:       "企業名",
		fiscalYear:    "会計年度",
		close:         "終値",
		high:          "高値(当日)",
		low:           "安値(当日)",
		week52High:    "52週高値",
		week52Low:     "52週安値",
		volume:        "出来高",
		peTrailing:    "PER（実績）",
		peForward:     "PER（予想）",
		pbr:           "PBR",
		marketCap:     "時価総額",
		usdJpy:        "ドル円",
	},
	"en": {
		header:        "## Verified Data Summary",
		headerNote:    "**IMPORTANT: key_facts must cite only facts from this summary. Citing numbers not listed here is forbidden.**",
		edinetSection: "### EDINET Financial Data",
		tdnetSection:  "### Timely Disclosures (TDNET)",
		tdnetNote:     "Source label: `TDNET YYYY-MM-DD`. Titles only; TDNET carries no financial figures.",
		priceSection:  "### Price Data",
		fxSection:     "### FX Data",
		macroSection:  "### Macro Statistics (e-Stat)",
		macroNote:     "Table metadata only. Do NOT cite specific GDP/CPI figures.",
		company:       "Company",
		fiscalYear:    "Fiscal year",
		close:         "Close",
		high:          "Day high",
		low:           "Day low",
		week52High:    "52-week high",
		week52Low:     "52-week low",
		volume:        "Volume",
		peTrailing:    "P/E (trailing)",
		peForward:     "P/E (forward)",
		pbr:           "P/B",
		marketCap:     "Market cap",
		usdJpy:        "USD/JPY",
	},
}

var sectorNotes = map[string]map[string]string{
	"financial": {
		"ja": "⚠️ [金融セクター解釈] 銀行・金融機関では高いD/E比率・低い自己資本比率は業態上の正常値です。財務健全性はTier1自己資本比率・NPL比率で判断してください。",
		"en": "⚠️ [Financial Sector] High D/E and low equity ratios are structurally normal for banks. Assess solvency via Tier1 capital ratio and NPL ratio instead.",
	},
	"real estate": {
		"ja": "⚠️ [不動産セクター解釈] 不動産・REITでは高いD/E比率は業態上の正常値。LTV・NAV・FFOで評価してください。",
		"en": "⚠️ [Real Estate Sector] High D/E is structurally normal for real estate/REITs. Assess via LTV, NAV, and FFO.",
	},
	"utilities": {
		"ja": "⚠️ [公益セクター解釈] 電力・ガス会社では設備投資の性質上D/E比率が高くなりがちです。規制収益の安定性を考慮してください。",
		"en": "⚠️ [Utilities Sector] High D/E is structurally normal for utilities due to capex intensity. Weigh stable regulated returns.",
	},
}

// BuildSummary renders the verified data summary for a bundle. Sources that
// did not return data are omitted entirely.
func BuildSummary(bundle *dataflows.Bundle, code, language string) string {
	l, ok := labelSets[language]
	if !ok {
		l = labelSets["ja"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n%s\n", l.header, code, l.headerNote)

	if st := bundle.Statements; st != nil {
		fmt.Fprintf(&b, "\n%s\n", l.edinetSection)
		fmt.Fprintf(&b, "- %s: %s\n", l.company, st.CompanyName)
		if st.FiscalYear != "" {
			fmt.Fprintf(&b, "- %s: %s\n", l.fiscalYear, st.FiscalYear)
		}
		writeRatio(&b, "ROE", st.ROE, "%")
		writeYen(&b, "EPS", st.EPS)
		fmt.Fprintf(&b, "- Source label: `EDINET %s`\n", st.FilingDate)
		if note := sectorNote(bundle, language); note != "" {
			fmt.Fprintf(&b, "%s\n", note)
		}
	}

	if len(bundle.Disclosures) > 0 {
		fmt.Fprintf(&b, "\n%s\n%s\n", l.tdnetSection, l.tdnetNote)
		for i, d := range bundle.Disclosures {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s\n", d.Date, d.Title)
		}
	}

	if p := bundle.StockPrice; p != nil {
		date := p.AsOf.Format("2006-01-02")
		fmt.Fprintf(&b, "\n%s\n", l.priceSection)
		fmt.Fprintf(&b, "- %s: ¥%s\n", l.close, p.CurrentPrice.StringFixed(0))
		fmt.Fprintf(&b, "- %s: ¥%s / %s: ¥%s\n", l.high, p.High.StringFixed(0), l.low, p.Low.StringFixed(0))
		if !p.Week52High.IsZero() {
			fmt.Fprintf(&b, "- %s: ¥%s / %s: ¥%s\n", l.week52High, p.Week52High.StringFixed(0), l.week52Low, p.Week52Low.StringFixed(0))
		}
		if p.Volume > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", l.volume, p.Volume)
		}
		writeRatio(&b, l.peTrailing, p.PETrailing, "x")
		writeRatio(&b, l.peForward, p.PEForward, "x")
		writeRatio(&b, l.pbr, p.PriceToBook, "x")
		if p.MarketCap > 0 {
			fmt.Fprintf(&b, "- %s: ¥%.0f億\n", l.marketCap, p.MarketCap/1e8)
		}
		fmt.Fprintf(&b, "- Source label: `yfinance %s`\n", date)
	}

	if fx := bundle.FX; fx != nil {
		fmt.Fprintf(&b, "\n%s\n", l.fxSection)
		if jpy, ok := fx.Rates["JPY"]; ok {
			fmt.Fprintf(&b, "- %s: %.2f\n", l.usdJpy, jpy)
		}
		fmt.Fprintf(&b, "- Source label: `FX %s`\n", fx.Date)
	}

	if len(bundle.Macro) > 0 {
		fmt.Fprintf(&b, "\n%s\n%s\n", l.macroSection, l.macroNote)
		for _, m := range bundle.Macro {
			fmt.Fprintf(&b, "- %s\n", m.TableName)
		}
	}

	return b.String()
}

func sectorNote(bundle *dataflows.Bundle, language string) string {
	if bundle.StockPrice == nil || bundle.StockPrice.Sector == "" {
		return ""
	}
	sector := strings.ToLower(bundle.StockPrice.Sector)
	for key, notes := range sectorNotes {
		if strings.Contains(sector, key) {
			if note, ok := notes[language]; ok {
				return note
			}
			return notes["ja"]
		}
	}
	return ""
}

func writeRatio(b *strings.Builder, label string, value float64, unit string) {
	if value > 0 {
		fmt.Fprintf(b, "- %s: %.1f%s\n", label, value, unit)
	}
}

func writeYen(b *strings.Builder, label string, value float64) {
	if value > 0 {
		fmt.Fprintf(b, "- %s: ¥%.1f\n", label, value)
	}
}
