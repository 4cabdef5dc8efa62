package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kabuto-ai/kabuto/internal/logging"
	"github.com/kabuto-ai/kabuto/pkg/models"
)

func sampleResult() *models.AnalysisResult {
	target := 3100.0
	stop := 2500.0
	return &models.AnalysisResult{
		Code:        "7203",
		CompanyName: "トヨタ自動車",
		Decision: &models.TradingDecision{
			Action:          models.ActionBuy,
			Confidence:      0.72,
			Reasoning:       "momentum",
			Thesis:          "円安追い風の輸出株",
			KeyFacts:        []models.KeyFact{{Fact: "ROE 11.8%", Source: "EDINET 2025-06-25"}},
			WatchConditions: []string{"ガイダンス下方修正"},
			TargetPrice:     &target,
			StopLoss:        &stop,
		},
		RiskReview:  &models.RiskReview{Approved: true},
		SourcesUsed: []string{"statements", "stock_price"},
		RawData: map[string]any{
			"stock_price": map[string]any{"current_price": 2850.0},
		},
		Model:     "gpt-4o-mini",
		Timestamp: time.Date(2025, 8, 28, 9, 0, 0, 0, time.UTC),
	}
}

func TestFormatReportFullDecision(t *testing.T) {
	msg := FormatReport(sampleResult(), nil)

	assert.Contains(t, msg, "Kabuto Research: 7203 トヨタ自動車")
	assert.Contains(t, msg, "<b>BUY</b>")
	assert.Contains(t, msg, "確度: 72%")
	assert.Contains(t, msg, "Risk: APPROVED")
	assert.Contains(t, msg, "現在値:  ¥2850")
	assert.Contains(t, msg, "目標株価: ¥3100")
	assert.Contains(t, msg, "+8.8%")
	assert.Contains(t, msg, "損切り:  ¥2500")
	assert.Contains(t, msg, "ROE 11.8%（EDINET 2025-06-25）")
	assert.Contains(t, msg, "statements, stock_price")
	assert.Contains(t, msg, "投資助言ではありません")
}

func TestFormatReportNoDecision(t *testing.T) {
	result := &models.AnalysisResult{Code: "7203", Timestamp: time.Now()}
	msg := FormatReport(result, nil)

	assert.Contains(t, msg, "分析失敗")
	assert.NotContains(t, msg, "<b>")
}

func TestFormatReportIncludesChanges(t *testing.T) {
	msg := FormatReport(sampleResult(), []string{"⚡ HOLD → BUY"})
	assert.Contains(t, msg, "What Changed")
	assert.Contains(t, msg, "⚡ HOLD → BUY")
}

func TestFormatReportPhaseErrors(t *testing.T) {
	result := sampleResult()
	result.PhaseErrors = map[string]string{"debate": "timeout"}
	msg := FormatReport(result, nil)
	assert.Contains(t, msg, "Pipeline Issues")
	assert.Contains(t, msg, "debate: timeout")
}

func TestFormatPortfolioGroupsByAction(t *testing.T) {
	buy := sampleResult()
	hold := sampleResult()
	hold.Code = "6758"
	hold.CompanyName = "ソニーグループ"
	hold.Decision = &models.TradingDecision{Action: models.ActionHold, Confidence: 0.5, Reasoning: "wait"}

	portfolio := &models.PortfolioResult{
		Codes:       []string{"7203", "6758", "9984"},
		Results:     []models.AnalysisResult{*buy, *hold},
		FailedCodes: []string{"9984"},
		Timestamp:   time.Date(2025, 8, 28, 9, 0, 0, 0, time.UTC),
	}

	msg := FormatPortfolio(portfolio, map[string][]string{"7203": {"⚡ HOLD → BUY"}})

	assert.Contains(t, msg, "2/3銘柄")
	assert.Contains(t, msg, "🟢 BUY (1件)")
	assert.Contains(t, msg, "🟡 HOLD (1件)")
	assert.NotContains(t, msg, "🔴 SELL")
	assert.Contains(t, msg, "⚡ HOLD → BUY")
	assert.Contains(t, msg, "失敗: 9984")

	// Buy group appears before hold group.
	assert.Less(t, strings.Index(msg, "🟢 BUY"), strings.Index(msg, "🟡 HOLD"))
}

func TestTelegramConfigured(t *testing.T) {
	log := logging.NewNop()
	assert.False(t, NewTelegram("", "", log).Configured())
	assert.False(t, NewTelegram("token", "", log).Configured())
	assert.True(t, NewTelegram("token", "12345", log).Configured())
}
