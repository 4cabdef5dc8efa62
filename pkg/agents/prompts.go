package agents

import (
	"fmt"
	"strings"

	"github.com/kabuto-ai/kabuto/pkg/models"
)

const reportExcerptLen = 600

var registry = map[Kind]agentSpec{
	KindFundamental: {
		displayName: "Fundamental Analyst",
		systemJA: `あなたは日本株のファンダメンタルズアナリストです。
EDINET財務データと株価バリュエーション指標から、収益性・財務健全性・割安度を分析してください。
データにない数値を推測で補わないこと。出力は日本語、400字以内。`,
		systemEN: `You are a fundamental analyst for Japanese equities.
Analyze profitability, balance-sheet health, and valuation from the EDINET filing data and price multiples provided.
Never invent numbers not present in the data. Respond in English, under 200 words.`,
		buildPrompt: buildFundamentalPrompt,
		sources:     func(c *Context) []string { return []string{"statements", "stock_price"} },
	},
	KindMacro: {
		displayName: "Macro Analyst",
		systemJA: `あなたはマクロ経済アナリストです。
為替データとマクロ統計のメタ情報から、対象銘柄への金利・為替の影響を分析してください。
統計テーブルの具体的な数値は提供されていないため引用しないこと。出力は日本語、400字以内。`,
		systemEN: `You are a macroeconomic analyst.
Assess how rates and FX affect the subject stock using the FX data and macro table metadata provided.
Macro tables carry no values here, so do not cite specific macro figures. Respond in English, under 200 words.`,
		buildPrompt: buildMacroPrompt,
		sources:     func(c *Context) []string { return []string{"fx", "macro"} },
	},
	KindEvent: {
		displayName: "Event Analyst",
		systemJA: `あなたはイベントドリブンのアナリストです。
適時開示（TDNET）のタイトル一覧とニュース見出しから、株価に影響しうるイベントを抽出・評価してください。
開示タイトルにない内容を推測で補わないこと。出力は日本語、400字以内。`,
		systemEN: `You are an event-driven analyst.
From the TDNET disclosure titles and news headlines, extract and assess events likely to move the stock.
Do not speculate beyond the titles. Respond in English, under 200 words.`,
		buildPrompt: buildEventPrompt,
		sources:     func(c *Context) []string { return []string{"disclosures", "news"} },
	},
	KindSentiment: {
		displayName: "Sentiment Analyst",
		systemJA: `あなたはセンチメントアナリストです。
ニュース見出しのトーンから市場心理を評価してください。見出しにない事実を補わないこと。
出力は日本語、300字以内。`,
		systemEN: `You are a sentiment analyst.
Gauge market mood from the tone of the news headlines. Do not add facts beyond the headlines.
Respond in English, under 150 words.`,
		buildPrompt: buildSentimentPrompt,
		sources:     func(c *Context) []string { return []string{"news"} },
	},
	KindTechnical: {
		displayName: "Technical Analyst",
		systemJA: `あなたはテクニカルアナリストです。
当日OHLC・出来高・52週レンジから、モメンタムとサポート/レジスタンス水準を分析してください。
出力は日本語、300字以内。`,
		systemEN: `You are a technical analyst.
Analyze momentum and support/resistance from the day's OHLC, volume, and 52-week range.
Respond in English, under 150 words.`,
		buildPrompt: buildTechnicalPrompt,
		sources:     func(c *Context) []string { return []string{"stock_price"} },
	},
	KindBull: {
		displayName: "Bull Researcher",
		systemJA: `あなたは強気派のリサーチャーです。アナリストレポートを踏まえ、この銘柄を買うべき最も説得力のある論拠を組み立ててください。
弱気派の反論が提示された場合は、それに直接反駁してください。出力は日本語、400字以内。`,
		systemEN: `You are the bull-side researcher. Build the most convincing case to buy this stock from the analyst reports.
When a bear counter-argument is provided, rebut it directly. Respond in English, under 200 words.`,
		buildPrompt: buildBullPrompt,
	},
	KindBear: {
		displayName: "Bear Researcher",
		systemJA: `あなたは弱気派のリサーチャーです。アナリストレポートと強気論を踏まえ、この銘柄を買うべきでない最も説得力のある論拠を組み立ててください。
強気論の弱点を具体的に突くこと。出力は日本語、400字以内。`,
		systemEN: `You are the bear-side researcher. Build the most convincing case against buying this stock, attacking the bull case's weakest points.
Respond in English, under 200 words.`,
		buildPrompt: buildBearPrompt,
	},
	KindTrader: {
		displayName: "Trader",
		systemJA: `あなたは日本株を専門とするプロのトレーダーです。エビデンスに基づいた投資判断を行います。

**最重要ルール: key_factsの出典は、必ず提供された「検証済みデータ一覧」に記載のある事実のみ引用すること。**
一覧にない数値（特にGDP・CPI等のマクロ数値)を引用してはならない。

以下のJSON形式で投資判断を出力してください:
{
  "action": "BUY" | "SELL" | "HOLD",
  "confidence": 0.0-1.0,
  "position_size": "small" | "medium" | "large" | null,
  "reasoning": "判断ロジックの1-2文サマリー",
  "thesis": "2-4文の投資テーゼ。実データの数値を引用すること。",
  "watch_conditions": ["テーゼが無効になる具体的条件（閾値を含む)", "..."],
  "key_facts": [{"fact": "具体的な数値やイベント", "source": "検証済みデータ一覧の出典ラベル"}],
  "target_price": number | null,
  "stop_loss": number | null
}

ガイドライン:
- confidence: 複数データソースが収束する場合のみ0.7超。不確実な場合はHOLDを優先。
- watch_conditions: 3-5項目。曖昧表現のみは不可、具体的な閾値を含めること。
- key_facts: 3-6項目。出典ラベルは一覧の表記をそのまま使用。`,
		systemEN: `You are a professional trader specializing in Japanese equities. Make evidence-based decisions.

**CRITICAL RULE: key_facts may ONLY cite facts that appear in the provided Verified Data Summary.**
Do NOT cite macro figures (GDP, CPI, etc.) not present in the summary.

Output your decision as JSON:
{
  "action": "BUY" | "SELL" | "HOLD",
  "confidence": 0.0-1.0,
  "position_size": "small" | "medium" | "large" | null,
  "reasoning": "1-2 sentence summary of the decision logic",
  "thesis": "2-4 sentence investment thesis citing actual numbers",
  "watch_conditions": ["specific invalidating condition with thresholds", "..."],
  "key_facts": [{"fact": "specific number or event", "source": "source label from the summary"}],
  "target_price": number | null,
  "stop_loss": number | null
}

Guidelines:
- confidence: above 0.7 only when multiple sources converge. Prefer HOLD when uncertain.
- watch_conditions: 3-5 items with concrete thresholds, no vague phrases.
- key_facts: 3-6 items, source labels copied verbatim from the summary.`,
		buildPrompt: buildTraderPrompt,
		structured:  true,
	},
	KindRisk: {
		displayName: "Risk Manager",
		systemJA: `あなたはリスクマネージャーです。トレーダーの投資判断を審査し、承認可否を決定します。

以下のJSON形式で出力してください:
{
  "approved": true | false,
  "concerns": ["懸念事項", "..."],
  "max_position_pct": number | null,
  "reasoning": "審査結論の根拠"
}

過度なレバレッジ・単一データソース依存・流動性・為替リスクを重点的に確認すること。`,
		systemEN: `You are the risk manager. Review the trader's decision and approve or reject it.

Output JSON:
{
  "approved": true | false,
  "concerns": ["concern", "..."],
  "max_position_pct": number | null,
  "reasoning": "basis for the verdict"
}

Focus on leverage, single-source dependence, liquidity, and FX exposure.`,
		buildPrompt: buildRiskPrompt,
		structured:  true,
	},
}

func buildFundamentalPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "ファンダメンタルズ分析を行ってください。", "Perform a fundamental analysis.")
	if c.Bundle != nil {
		if st := c.Bundle.Statements; st != nil {
			fmt.Fprintf(&b, "\n## EDINET\n- %s (%s), filed %s\n", st.CompanyName, st.FiscalYear, st.FilingDate)
		}
		writePriceSection(&b, c)
	}
	return b.String()
}

func buildMacroPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "マクロ環境の影響を分析してください。", "Analyze the macro environment impact.")
	if c.Bundle != nil {
		if fx := c.Bundle.FX; fx != nil {
			fmt.Fprintf(&b, "\n## FX (%s, base %s)\n", fx.Date, fx.Base)
			for ccy, rate := range fx.Rates {
				fmt.Fprintf(&b, "- %s: %.2f\n", ccy, rate)
			}
		}
		if len(c.Bundle.Macro) > 0 {
			fmt.Fprintf(&b, "\n## Macro tables (metadata only)\n")
			for _, m := range c.Bundle.Macro {
				fmt.Fprintf(&b, "- %s\n", m.TableName)
			}
		}
	}
	return b.String()
}

func buildEventPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "イベント分析を行ってください。", "Perform an event analysis.")
	if c.Bundle != nil {
		if len(c.Bundle.Disclosures) > 0 {
			fmt.Fprintf(&b, "\n## TDNET disclosures\n")
			for i, d := range c.Bundle.Disclosures {
				if i >= 10 {
					break
				}
				fmt.Fprintf(&b, "- [%s] %s\n", d.Date, d.Title)
			}
		}
		writeNewsSection(&b, c)
	}
	return b.String()
}

func buildSentimentPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "センチメント分析を行ってください。", "Perform a sentiment analysis.")
	if c.Bundle != nil {
		writeNewsSection(&b, c)
	}
	return b.String()
}

func buildTechnicalPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "テクニカル分析を行ってください。", "Perform a technical analysis.")
	if c.Bundle != nil {
		writePriceSection(&b, c)
	}
	return b.String()
}

func buildBullPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "強気論を組み立ててください。", "Build the bull case.")
	writeReportsSection(&b, c.Reports, language)
	if c.BearCase != nil {
		fmt.Fprintf(&b, "\n## Bear counter-argument\n%s\n", excerpt(c.BearCase.Content))
	}
	return b.String()
}

func buildBearPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "弱気論を組み立ててください。", "Build the bear case.")
	writeReportsSection(&b, c.Reports, language)
	if c.BullCase != nil {
		fmt.Fprintf(&b, "\n## Bull case\n%s\n", excerpt(c.BullCase.Content))
	}
	return b.String()
}

func buildTraderPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "投資判断を行ってください。", "Make a trading decision.")
	if c.CurrentPrice != nil {
		fmt.Fprintf(&b, "\n**Current price: ¥%.0f**\n", *c.CurrentPrice)
	}
	// The verified summary comes first; key_facts cite only from here.
	if c.DataSummary != "" {
		fmt.Fprintf(&b, "\n%s\n", c.DataSummary)
	}
	writeReportsSection(&b, c.Reports, language)
	if c.BullCase != nil {
		fmt.Fprintf(&b, "\n## Bull case\n%s\n", excerpt(c.BullCase.Content))
	}
	if c.BearCase != nil {
		fmt.Fprintf(&b, "\n## Bear case\n%s\n", excerpt(c.BearCase.Content))
	}
	return b.String()
}

func buildRiskPrompt(c *Context, language string) string {
	var b strings.Builder
	writeHeader(&b, c.Code, language, "投資判断を審査してください。", "Review the trading decision.")
	if c.TraderReport != nil {
		fmt.Fprintf(&b, "\n## Trader decision\n%s\n", c.TraderReport.Content)
	}
	writeReportsSection(&b, c.Reports, language)
	return b.String()
}

func writeHeader(b *strings.Builder, code, language, ja, en string) {
	if language == "en" {
		fmt.Fprintf(b, "Stock code %s. %s\n", code, en)
		return
	}
	fmt.Fprintf(b, "銘柄コード %s。%s\n", code, ja)
}

func writePriceSection(b *strings.Builder, c *Context) {
	p := c.Bundle.StockPrice
	if p == nil {
		return
	}
	fmt.Fprintf(b, "\n## Price (%s)\n", p.AsOf.Format("2006-01-02"))
	fmt.Fprintf(b, "- O/H/L/C: %s / %s / %s / %s, volume %d\n",
		p.Open.StringFixed(0), p.High.StringFixed(0), p.Low.StringFixed(0), p.Close.StringFixed(0), p.Volume)
	if !p.Week52High.IsZero() {
		fmt.Fprintf(b, "- 52w range: %s - %s\n", p.Week52Low.StringFixed(0), p.Week52High.StringFixed(0))
	}
	if p.PETrailing > 0 {
		fmt.Fprintf(b, "- P/E %.1fx, P/B %.1fx\n", p.PETrailing, p.PriceToBook)
	}
}

func writeNewsSection(b *strings.Builder, c *Context) {
	if len(c.Bundle.News) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## News headlines\n")
	for i, n := range c.Bundle.News {
		if i >= 10 {
			break
		}
		fmt.Fprintf(b, "- %s", n.Title)
		if n.Source != "" {
			fmt.Fprintf(b, " (%s)", n.Source)
		}
		fmt.Fprintln(b)
	}
}

func writeReportsSection(b *strings.Builder, reports []models.AgentReport, language string) {
	if len(reports) == 0 {
		return
	}
	if language == "en" {
		fmt.Fprintf(b, "\n## Analyst Reports\n")
	} else {
		fmt.Fprintf(b, "\n## アナリストレポート\n")
	}
	for _, r := range reports {
		fmt.Fprintf(b, "### %s\n%s\n", r.DisplayName, excerpt(r.Content))
	}
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= reportExcerptLen {
		return s
	}
	return string(runes[:reportExcerptLen])
}
