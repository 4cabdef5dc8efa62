package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kabuto-ai/kabuto/pkg/models"
)

const (
	reportExcerpt = 800
	debateExcerpt = 600
)

// uiText holds the language-dependent labels for the result view.
type uiText struct {
	decisionHeader string
	riskHeader     string
	confidence     string
	position       string
	current        string
	target         string
	stop           string
	thesis         string
	keyFacts       string
	watch          string
	concerns       string
	maxPos         string
}

var uiTexts = map[string]uiText{
	"ja": {
		decisionHeader: "--- 投資判断 ---",
		riskHeader:     "--- リスク審査 ---",
		confidence:     "確度",
		position:       "ポジション",
		current:        "現在値: ¥%.0f",
		target:         "目標株価: ¥%.0f",
		stop:           "損切り: ¥%.0f",
		thesis:         "投資テーゼ",
		keyFacts:       "根拠データ",
		watch:          "テーゼ無効化条件",
		concerns:       "懸念事項",
		maxPos:         "最大ポジション: %.1f%%",
	},
	"en": {
		decisionHeader: "--- Trading Decision ---",
		riskHeader:     "--- Risk Review ---",
		confidence:     "Confidence",
		position:       "Position",
		current:        "Current: ¥%.0f",
		target:         "Target: ¥%.0f",
		stop:           "Stop-loss: ¥%.0f",
		thesis:         "Investment Thesis",
		keyFacts:       "Key Facts",
		watch:          "Thesis Invalidation Conditions",
		concerns:       "Concerns",
		maxPos:         "Max position: %.1f%%",
	},
}

// RenderResult writes the full single-stock analysis view.
func RenderResult(w io.Writer, result *models.AnalysisResult, changes []string, language string) {
	t, ok := uiTexts[language]
	if !ok {
		t = uiTexts["ja"]
	}

	sources := "none"
	if len(result.SourcesUsed) > 0 {
		sources = strings.Join(result.SourcesUsed, ", ")
	}
	fmt.Fprintf(w, "\nSources: %d (%s)\n", len(result.SourcesUsed), sources)
	if result.CompanyName != "" {
		fmt.Fprintf(w, "Company: %s\n", result.CompanyName)
	}

	fmt.Fprintln(w, "\n"+sectionStyle.Render("--- Analyst Reports ---"))
	for i, report := range result.AnalystReports {
		title := fmt.Sprintf("[%d/%d] %s", i+1, len(result.AnalystReports), report.DisplayName)
		fmt.Fprintln(w, panelStyle.Render(titleStyle.Render(title)+"\n"+excerpt(report.Content, reportExcerpt)))
	}

	if result.Debate != nil {
		fmt.Fprintln(w, "\n"+sectionStyle.Render("--- Bull vs Bear Debate ---"))
		fmt.Fprintln(w, bullPanelStyle.Render("Bull Case\n"+excerpt(result.Debate.BullCase.Content, debateExcerpt)))
		fmt.Fprintln(w, bearPanelStyle.Render("Bear Case\n"+excerpt(result.Debate.BearCase.Content, debateExcerpt)))
	}

	if result.Decision != nil {
		renderDecision(w, result, t)
	}
	if result.RiskReview != nil {
		renderRiskReview(w, result.RiskReview, t)
	}

	if len(result.PhaseErrors) > 0 {
		fmt.Fprintln(w, "\n"+errorStyle.Render("--- Pipeline Issues ---"))
		for phase, reason := range result.PhaseErrors {
			fmt.Fprintf(w, "  %s: %s\n", phase, reason)
		}
	}

	if len(changes) > 0 {
		fmt.Fprintln(w, "\n"+sectionStyle.Render("--- 前回比較 / Changes vs last run ---"))
		for _, change := range changes {
			fmt.Fprintln(w, "  "+changeStyle.Render(change))
		}
	}

	fmt.Fprintln(w, "\n"+dimStyle.Render("This is not financial advice. For educational and research purposes only."))
}

func renderDecision(w io.Writer, result *models.AnalysisResult, t uiText) {
	d := result.Decision
	var b strings.Builder

	position := d.PositionSize
	if position == "" {
		position = "N/A"
	}
	b.WriteString(fmt.Sprintf("%s  |  %s: %.0f%%  |  %s: %s\n",
		actionStyle(d.Action).Render(d.Action), t.confidence, d.Confidence*100, t.position, position))

	current := rawCurrentPrice(result)
	if current != nil {
		b.WriteString("\n" + fmt.Sprintf(t.current, *current) + "\n")
	}
	if d.TargetPrice != nil {
		line := fmt.Sprintf(t.target, *d.TargetPrice)
		if current != nil {
			line += fmt.Sprintf("  (%+.1f%%)", (*d.TargetPrice-*current) / *current*100)
		}
		b.WriteString(line + "\n")
	}
	if d.StopLoss != nil {
		line := fmt.Sprintf(t.stop, *d.StopLoss)
		if current != nil {
			line += fmt.Sprintf("  (%+.1f%%)", (*d.StopLoss-*current) / *current*100)
		}
		b.WriteString(line + "\n")
	}

	if d.Thesis != "" {
		b.WriteString("\n" + t.thesis + "\n" + d.Thesis + "\n")
	}
	if len(d.KeyFacts) > 0 {
		b.WriteString("\n" + t.keyFacts + "\n")
		for _, kf := range d.KeyFacts {
			src := ""
			if kf.Source != "" {
				src = "  " + dimStyle.Render("("+kf.Source+")")
			}
			b.WriteString("• " + kf.Fact + src + "\n")
		}
	}
	if len(d.WatchConditions) > 0 {
		b.WriteString("\n" + t.watch + "\n")
		for _, cond := range d.WatchConditions {
			b.WriteString("• " + cond + "\n")
		}
	}

	fmt.Fprintln(w, "\n"+sectionStyle.Render(t.decisionHeader))
	fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderRiskReview(w io.Writer, review *models.RiskReview, t uiText) {
	var b strings.Builder
	if review.Approved {
		b.WriteString("Status: " + approvedStyle.Render("✅ Approved"))
	} else {
		b.WriteString("Status: " + rejectedStyle.Render("❌ Rejected"))
	}
	if review.MaxPositionPct != nil {
		b.WriteString("\n" + fmt.Sprintf(t.maxPos, *review.MaxPositionPct))
	}
	b.WriteString("\n\n" + review.Reasoning)
	if len(review.Concerns) > 0 {
		b.WriteString("\n\n" + t.concerns + "\n")
		for _, c := range review.Concerns {
			b.WriteString("• " + c + "\n")
		}
	}

	style := bullPanelStyle
	if !review.Approved {
		style = bearPanelStyle
	}
	fmt.Fprintln(w, "\n"+sectionStyle.Render(t.riskHeader))
	fmt.Fprintln(w, style.Render(strings.TrimRight(b.String(), "\n")))
}

// RenderPortfolio writes the multi-stock summary table.
func RenderPortfolio(w io.Writer, portfolio *models.PortfolioResult, changes map[string][]string) {
	fmt.Fprintf(w, "\n%s\n", sectionStyle.Render("Portfolio — "+portfolio.Timestamp.Format("2006-01-02 15:04")))
	fmt.Fprintf(w, "%-6s  %-16s  %-6s  %-5s  %-4s  %-9s  %-9s  %s\n",
		"Code", "Company", "Action", "Conf", "Risk", "Target", "Stop", "Change")

	counts := map[string]int{}
	for i := range portfolio.Results {
		r := &portfolio.Results[i]
		d := r.Decision

		company := r.CompanyName
		if len([]rune(company)) > 16 {
			company = string([]rune(company)[:16])
		}
		change := ""
		if clist := changes[r.Code]; len(clist) > 0 {
			if len(clist) > 2 {
				clist = clist[:2]
			}
			change = changeStyle.Render(strings.Join(clist, " | "))
		}

		if d == nil {
			fmt.Fprintf(w, "%-6s  %-16s  %s  %-5s  %-4s  %-9s  %-9s  %s\n",
				r.Code, company, dimStyle.Render("N/A   "), "—", "—", "—", "—", change)
			continue
		}
		counts[d.Action]++

		risk := "❌"
		if r.RiskReview != nil && r.RiskReview.Approved {
			risk = "✅"
		}
		target, stop := "—", "—"
		if d.TargetPrice != nil {
			target = fmt.Sprintf("¥%.0f", *d.TargetPrice)
		}
		if d.StopLoss != nil {
			stop = fmt.Sprintf("¥%.0f", *d.StopLoss)
		}
		fmt.Fprintf(w, "%-6s  %-16s  %s  %-5s  %-4s  %-9s  %-9s  %s\n",
			r.Code, company, actionStyle(d.Action).Render(fmt.Sprintf("%-6s", d.Action)),
			fmt.Sprintf("%.0f%%", d.Confidence*100), risk, target, stop, change)
	}

	for _, code := range portfolio.FailedCodes {
		fmt.Fprintf(w, "%-6s  %-16s  %s\n", code, "", errorStyle.Render("FAILED"))
	}

	fmt.Fprintf(w, "\n%s / %s / %s",
		buyStyle.Render(fmt.Sprintf("BUY %d", counts[models.ActionBuy])),
		holdStyle.Render(fmt.Sprintf("HOLD %d", counts[models.ActionHold])),
		sellStyle.Render(fmt.Sprintf("SELL %d", counts[models.ActionSell])))
	if len(portfolio.FailedCodes) > 0 {
		fmt.Fprintf(w, " / %s", dimStyle.Render(fmt.Sprintf("FAILED %d", len(portfolio.FailedCodes))))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "\n"+dimStyle.Render("This is not financial advice. For educational and research purposes only."))
}

func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// rawCurrentPrice digs the current price out of the raw payload. Prices
// survive JSON round trips as either numbers or decimal strings.
func rawCurrentPrice(result *models.AnalysisResult) *float64 {
	sp, ok := result.RawData["stock_price"].(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range []string{"current_price", "close"} {
		if v, ok := priceFloat(sp[key]); ok && v != 0 {
			return &v
		}
	}
	return nil
}

func priceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	}
	return 0, false
}
