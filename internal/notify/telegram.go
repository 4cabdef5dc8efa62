// Package notify delivers analysis results to Telegram.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kabuto-ai/kabuto/pkg/models"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends research-report style messages via the Bot API.
type Telegram struct {
	botToken string
	chatID   string
	client   *resty.Client
	log      *slog.Logger
}

func NewTelegram(botToken, chatID string, log *slog.Logger) *Telegram {
	client := resty.New().
		SetBaseURL(telegramAPIBase).
		SetTimeout(10 * time.Second)
	return &Telegram{botToken: botToken, chatID: chatID, client: client, log: log}
}

func (t *Telegram) Configured() bool {
	return t.botToken != "" && t.chatID != ""
}

// Send posts a single-stock report. changes, when non-empty, adds a
// "What Changed" section from the snapshot diff.
func (t *Telegram) Send(ctx context.Context, result *models.AnalysisResult, changes []string) error {
	if !t.Configured() {
		return fmt.Errorf("telegram not configured: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}
	text := FormatReport(result, changes)
	if err := t.post(ctx, text, "HTML"); err != nil {
		// Telegram rejects messages whose HTML it cannot parse, and
		// model output can contain stray angle brackets. Retry plain.
		t.log.Warn("telegram HTML send failed, retrying plain", "code", result.Code, "error", err)
		return t.post(ctx, text, "")
	}
	t.log.Info("telegram alert sent", "code", result.Code)
	return nil
}

// SendPortfolio posts the compact multi-stock summary. changes maps a
// stock code to its snapshot diff entries.
func (t *Telegram) SendPortfolio(ctx context.Context, portfolio *models.PortfolioResult, changes map[string][]string) error {
	if !t.Configured() {
		return fmt.Errorf("telegram not configured")
	}
	if err := t.post(ctx, FormatPortfolio(portfolio, changes), ""); err != nil {
		return err
	}
	t.log.Info("telegram portfolio alert sent", "stocks", len(portfolio.Results))
	return nil
}

func (t *Telegram) post(ctx context.Context, text, parseMode string) error {
	body := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		body["parse_mode"] = parseMode
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.botToken))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

const divider = "━━━━━━━━━━━━━━━━━━━━━━━━"

func actionEmoji(action string) string {
	switch action {
	case models.ActionBuy:
		return "📈"
	case models.ActionSell:
		return "📉"
	case models.ActionHold:
		return "⏸️"
	default:
		return "❓"
	}
}

// FormatReport renders one analysis as a research-report message.
func FormatReport(result *models.AnalysisResult, changes []string) string {
	ts := result.Timestamp.Format("2006-01-02 15:04")
	decision := result.Decision
	if decision == nil {
		return fmt.Sprintf("🔔 Kabuto: %s — 分析失敗（決定なし）\n⏰ %s", result.Code, ts)
	}

	risk := result.RiskReview
	riskStatus := "⚠️ Risk: Rejected"
	if risk != nil && risk.Approved {
		riskStatus = "✅ Risk: APPROVED"
	}
	company := ""
	if result.CompanyName != "" {
		company = " " + result.CompanyName
	}

	lines := []string{
		divider,
		fmt.Sprintf("🏦 Kabuto Research: %s%s", result.Code, company),
		divider,
		"",
		fmt.Sprintf("%s <b>%s</b>  |  確度: %.0f%%  |  %s", actionEmoji(decision.Action), decision.Action, decision.Confidence*100, riskStatus),
	}

	lines = appendPriceTargets(lines, decision, currentPrice(result))
	lines = appendThesis(lines, decision)
	lines = appendRiskConcerns(lines, risk)
	lines = appendPhaseErrors(lines, result.PhaseErrors)
	lines = appendChanges(lines, changes)

	sources := "—"
	if len(result.SourcesUsed) > 0 {
		sources = strings.Join(result.SourcesUsed, ", ")
	}
	lines = append(lines,
		"",
		divider,
		"📡 "+sources,
		fmt.Sprintf("⏰ %s | %s", ts, result.Model),
		"⚠️ 投資助言ではありません。教育・研究目的のみ。",
	)
	return strings.Join(lines, "\n")
}

// FormatPortfolio renders the compact grouped portfolio summary.
func FormatPortfolio(portfolio *models.PortfolioResult, changes map[string][]string) string {
	ts := portfolio.Timestamp.Format("2006-01-02 15:04")
	lines := []string{
		divider,
		"📊 Kabuto ポートフォリオ分析",
		fmt.Sprintf("⏰ %s | %d/%d銘柄", ts, len(portfolio.Results), len(portfolio.Codes)),
		divider,
	}

	groups := []struct {
		action string
		dot    string
	}{
		{models.ActionBuy, "🟢"},
		{models.ActionHold, "🟡"},
		{models.ActionSell, "🔴"},
	}
	for _, g := range groups {
		group := resultsByAction(portfolio.Results, g.action)
		if len(group) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("\n%s %s (%d件)", g.dot, g.action, len(group)))
		for i := range group {
			line := actionEmoji(g.action) + " " + resultLine(&group[i])
			if clist := changes[group[i].Code]; len(clist) > 0 {
				if len(clist) > 2 {
					clist = clist[:2]
				}
				line += "  🔔 " + strings.Join(clist, " | ")
			}
			lines = append(lines, line)
		}
	}

	if len(portfolio.FailedCodes) > 0 {
		lines = append(lines, "\n❌ 失敗: "+strings.Join(portfolio.FailedCodes, ", "))
	}
	lines = append(lines, "", divider, "⚠️ 投資助言ではありません。教育・研究目的のみ。")
	return strings.Join(lines, "\n")
}

func resultLine(result *models.AnalysisResult) string {
	code := result.Code
	if result.CompanyName != "" {
		code += " " + result.CompanyName
	}
	d := result.Decision
	if d == nil {
		return fmt.Sprintf("❓ %s — 分析失敗", code)
	}
	riskIcon := "⚠️"
	if result.RiskReview != nil && result.RiskReview.Approved {
		riskIcon = "✅"
	}
	line := fmt.Sprintf("%s  %.0f%%  %s", code, d.Confidence*100, riskIcon)
	if d.TargetPrice != nil {
		line += fmt.Sprintf("  目標 ¥%.0f", *d.TargetPrice)
	}
	return line
}

func resultsByAction(results []models.AnalysisResult, action string) []models.AnalysisResult {
	var out []models.AnalysisResult
	for _, r := range results {
		if r.Decision != nil && r.Decision.Action == action {
			out = append(out, r)
		}
	}
	return out
}

func appendPriceTargets(lines []string, d *models.TradingDecision, current *float64) []string {
	if current != nil {
		lines = append(lines, fmt.Sprintf("💰 現在値:  ¥%.0f", *current))
	}
	if d.TargetPrice != nil {
		upside := ""
		if current != nil {
			upside = fmt.Sprintf(" (%s 想定)", pctString(*current, *d.TargetPrice))
		}
		lines = append(lines, fmt.Sprintf("🎯 目標株価: ¥%.0f%s", *d.TargetPrice, upside))
	}
	if d.StopLoss != nil {
		downside := ""
		if current != nil {
			downside = fmt.Sprintf(" (%s 下値)", pctString(*current, *d.StopLoss))
		}
		lines = append(lines, fmt.Sprintf("🛑 損切り:  ¥%.0f%s", *d.StopLoss, downside))
	}
	return lines
}

func appendThesis(lines []string, d *models.TradingDecision) []string {
	if d.Thesis != "" {
		lines = append(lines, "", "📋 投資テーゼ", d.Thesis)
	}
	if len(d.KeyFacts) > 0 {
		lines = append(lines, "", "📊 根拠データ")
		for i, kf := range d.KeyFacts {
			if i == 5 {
				break
			}
			src := ""
			if kf.Source != "" {
				src = fmt.Sprintf("（%s）", kf.Source)
			}
			lines = append(lines, "• "+kf.Fact+src)
		}
	}
	if len(d.WatchConditions) > 0 {
		lines = append(lines, "", "👀 テーゼ無効化条件")
		for i, cond := range d.WatchConditions {
			if i == 4 {
				break
			}
			lines = append(lines, "• "+cond)
		}
	}
	return lines
}

func appendRiskConcerns(lines []string, risk *models.RiskReview) []string {
	if risk == nil || risk.Approved || len(risk.Concerns) == 0 {
		return lines
	}
	lines = append(lines, "", "🚨 リスク懸念")
	for i, concern := range risk.Concerns {
		if i == 3 {
			break
		}
		lines = append(lines, "• "+concern)
	}
	return lines
}

func appendPhaseErrors(lines []string, phaseErrors map[string]string) []string {
	if len(phaseErrors) == 0 {
		return lines
	}
	lines = append(lines, "", "⚠️ Pipeline Issues")
	for phase, reason := range phaseErrors {
		lines = append(lines, fmt.Sprintf("• %s: %s", phase, reason))
	}
	return lines
}

func appendChanges(lines, changes []string) []string {
	if len(changes) == 0 {
		return lines
	}
	lines = append(lines, "", "🔄 前回比較 (What Changed)")
	for _, change := range changes {
		lines = append(lines, "• "+change)
	}
	return lines
}

func pctString(current, target float64) string {
	pct := (target - current) / current * 100
	return fmt.Sprintf("%+.1f%%", pct)
}

func currentPrice(result *models.AnalysisResult) *float64 {
	sp, ok := result.RawData["stock_price"].(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range []string{"current_price", "close"} {
		switch v := sp[key].(type) {
		case float64:
			if v != 0 {
				return &v
			}
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil && f != 0 {
				return &f
			}
		}
	}
	return nil
}
