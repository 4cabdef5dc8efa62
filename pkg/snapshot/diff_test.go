package snapshot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabuto-ai/kabuto/pkg/models"
)

func resultWith(action string, confidence float64) *models.AnalysisResult {
	return &models.AnalysisResult{
		Code: "7203",
		Decision: &models.TradingDecision{
			Action:     action,
			Confidence: confidence,
			Reasoning:  "test",
		},
	}
}

func withReview(r *models.AnalysisResult, approved bool, concerns ...string) *models.AnalysisResult {
	r.RiskReview = &models.RiskReview{Approved: approved, Concerns: concerns}
	return r
}

func withPrice(r *models.AnalysisResult, price any) *models.AnalysisResult {
	r.RawData = map[string]any{
		"stock_price": map[string]any{"current_price": price},
	}
	return r
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	prior := withReview(resultWith("HOLD", 0.5), true, "leverage")
	current := withReview(resultWith("HOLD", 0.5), true, "leverage")
	assert.Empty(t, Diff(prior, current))
}

func TestDiffActionAndConfidenceChange(t *testing.T) {
	// Action flips and confidence jumps 30 points, approval unchanged:
	// exactly two entries.
	prior := withReview(resultWith("HOLD", 0.5), true)
	current := withReview(resultWith("BUY", 0.8), true)

	changes := Diff(prior, current)
	require.Len(t, changes, 2)
	assert.Contains(t, changes[0], "HOLD")
	assert.Contains(t, changes[0], "BUY")
	assert.Contains(t, changes[1], "50%")
	assert.Contains(t, changes[1], "80%")
}

func TestDiffActionChangeAlwaysReported(t *testing.T) {
	prior := resultWith("SELL", 0.6)
	current := resultWith("HOLD", 0.6)

	changes := Diff(prior, current)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0], "SELL → HOLD")
}

func TestDiffConfidenceBelowThresholdIgnored(t *testing.T) {
	prior := resultWith("BUY", 0.60)
	current := resultWith("BUY", 0.74)
	assert.Empty(t, Diff(prior, current))
}

func TestDiffNewSignal(t *testing.T) {
	prior := &models.AnalysisResult{Code: "7203"}
	current := resultWith("BUY", 0.7)

	changes := Diff(prior, current)
	require.Len(t, changes, 1)
	assert.Equal(t, "New signal: BUY (70%)", changes[0])
}

func TestDiffNewSignalSuppressesOtherChecks(t *testing.T) {
	// Prior had no decision but did have a review; present→present
	// checks must not fire on top of the new-signal entry.
	prior := withReview(&models.AnalysisResult{Code: "7203"}, false, "old concern")
	current := withReview(resultWith("SELL", 0.9), true)

	changes := Diff(prior, current)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0], "New signal")
}

func TestDiffSignalLost(t *testing.T) {
	prior := resultWith("BUY", 0.7)
	current := &models.AnalysisResult{Code: "7203"}

	changes := Diff(prior, current)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0], "Signal lost")
}

func TestDiffApprovalFlip(t *testing.T) {
	prior := withReview(resultWith("BUY", 0.7), true)
	current := withReview(resultWith("BUY", 0.7), false)

	changes := Diff(prior, current)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0], "Rejected")
}

func TestDiffConcernSetDifference(t *testing.T) {
	prior := withReview(resultWith("HOLD", 0.5), true, "leverage", "fx exposure")
	current := withReview(resultWith("HOLD", 0.5), true, "leverage", "governance")

	changes := Diff(prior, current)
	require.Len(t, changes, 2)
	assert.Contains(t, changes[0], "+Risk: governance")
	assert.Contains(t, changes[1], "-Risk: fx exposure")
}

func TestDiffPriceMove(t *testing.T) {
	prior := withPrice(resultWith("HOLD", 0.5), 1000.0)
	current := withPrice(resultWith("HOLD", 0.5), 1080.0)

	changes := Diff(prior, current)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0], "¥1000")
	assert.Contains(t, changes[0], "¥1080")
	assert.Contains(t, changes[0], "+8.0%")
}

func TestDiffPriceMoveBelowThresholdIgnored(t *testing.T) {
	prior := withPrice(resultWith("HOLD", 0.5), 1000.0)
	current := withPrice(resultWith("HOLD", 0.5), 1040.0)
	assert.Empty(t, Diff(prior, current))
}

func TestDiffPriceAsStringFromSnapshot(t *testing.T) {
	// Decimal prices round-trip through JSON as strings; the diff must
	// still compare them.
	prior := withPrice(resultWith("HOLD", 0.5), "1000")
	current := withPrice(resultWith("HOLD", 0.5), 1100.0)

	changes := Diff(prior, current)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0], "+10.0%")
}

func TestDiffMalformedPriceSkipped(t *testing.T) {
	prior := withPrice(resultWith("HOLD", 0.5), []any{"garbage"})
	current := withPrice(resultWith("HOLD", 0.5), 1100.0)
	assert.Empty(t, Diff(prior, current))
}

func TestDiffNilRawDataSkipped(t *testing.T) {
	assert.Empty(t, Diff(resultWith("HOLD", 0.5), resultWith("HOLD", 0.5)))
}

func TestDiffEntriesAreIndependent(t *testing.T) {
	prior := withPrice(withReview(resultWith("HOLD", 0.4), true), 1000.0)
	current := withPrice(withReview(resultWith("BUY", 0.9), false, "momentum chasing"), 1200.0)

	changes := Diff(prior, current)
	require.Len(t, changes, 5)

	joined := strings.Join(changes, "\n")
	assert.Contains(t, joined, "HOLD → BUY")
	assert.Contains(t, joined, "40% → 90%")
	assert.Contains(t, joined, "+20.0%")
	assert.Contains(t, joined, "Rejected")
	assert.Contains(t, joined, "+Risk: momentum chasing")
}
