package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabuto-ai/kabuto/pkg/models"
)

func TestParseDecisionWellFormed(t *testing.T) {
	content := `{
		"action": "BUY",
		"confidence": 0.75,
		"reasoning": "earnings beat with raised guidance",
		"thesis": "undervalued exporter with improving margins",
		"watch_conditions": ["guidance cut", "JPY below 130"],
		"key_facts": [{"fact": "営業利益 +18% YoY", "source": "EDINET 2025-06-25"}],
		"target_price": 3200,
		"stop_loss": 2500,
		"position_size": "half"
	}`

	d := ParseDecision(content)
	assert.Equal(t, models.ActionBuy, d.Action)
	assert.InDelta(t, 0.75, d.Confidence, 1e-9)
	assert.Equal(t, "undervalued exporter with improving margins", d.Thesis)
	assert.Len(t, d.WatchConditions, 2)
	require.Len(t, d.KeyFacts, 1)
	assert.Equal(t, "EDINET 2025-06-25", d.KeyFacts[0].Source)
	require.NotNil(t, d.TargetPrice)
	assert.Equal(t, 3200.0, *d.TargetPrice)
	require.NotNil(t, d.StopLoss)
	assert.Equal(t, "half", d.PositionSize)
}

func TestParseDecisionToleratesFencesAndProse(t *testing.T) {
	content := "Here is my analysis:\n```json\n" +
		`{"action": "SELL", "confidence": 0.6, "reasoning": "deteriorating demand"}` +
		"\n```\nLet me know if you need more."

	d := ParseDecision(content)
	assert.Equal(t, models.ActionSell, d.Action)
	assert.InDelta(t, 0.6, d.Confidence, 1e-9)
}

func TestParseDecisionUnparseableDegradesToHold(t *testing.T) {
	content := strings.Repeat("just buy it, trust me. ", 20)

	d := ParseDecision(content)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Zero(t, d.Confidence)
	assert.True(t, strings.HasPrefix(d.Reasoning, "Parse error: "))
	// Raw trace is capped at 200 runes plus the prefix.
	assert.LessOrEqual(t, len([]rune(d.Reasoning)), len("Parse error: ")+201)
	assert.NoError(t, d.Validate())
}

func TestParseDecisionInvalidActionDegradesToHold(t *testing.T) {
	d := ParseDecision(`{"action": "SHORT", "confidence": 0.9, "reasoning": "looks weak"}`)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Zero(t, d.Confidence)
	assert.Contains(t, d.Reasoning, "Parse error")
}

func TestParseDecisionOutOfRangeConfidenceDegrades(t *testing.T) {
	d := ParseDecision(`{"action": "BUY", "confidence": 1.7, "reasoning": "very sure"}`)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Zero(t, d.Confidence)
}

func TestParseDecisionMissingFieldsGetDefaults(t *testing.T) {
	d := ParseDecision(`{"action": "HOLD"}`)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)
	assert.Equal(t, "No reasoning provided", d.Reasoning)
	assert.Nil(t, d.TargetPrice)
	assert.Nil(t, d.StopLoss)
}

func TestParseRiskReviewWellFormed(t *testing.T) {
	r := ParseRiskReview(`{
		"approved": true,
		"concerns": ["fx exposure"],
		"max_position_pct": 7.5,
		"reasoning": "decision is well grounded"
	}`)
	assert.True(t, r.Approved)
	assert.Equal(t, []string{"fx exposure"}, r.Concerns)
	require.NotNil(t, r.MaxPositionPct)
	assert.Equal(t, 7.5, *r.MaxPositionPct)
}

func TestParseRiskReviewMalformedDegradesToRejected(t *testing.T) {
	r := ParseRiskReview("APPROVED! Go ahead.")
	assert.False(t, r.Approved)
	assert.Contains(t, r.Reasoning, "Parse error")
}
