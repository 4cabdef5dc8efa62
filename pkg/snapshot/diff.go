package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/kabuto-ai/kabuto/pkg/models"
)

// Materiality thresholds below which a change is noise, not a signal.
const (
	confidenceThreshold = 0.15
	pricePctThreshold   = 5.0
)

// Diff returns human-readable descriptions of the material changes
// between two runs for the same stock. It is a pure function and never
// fails: fields it cannot compare are skipped, not reported.
func Diff(prior, current *models.AnalysisResult) []string {
	changes := []string{}

	oldD := prior.Decision
	newD := current.Decision

	if oldD == nil {
		if newD != nil {
			changes = append(changes, fmt.Sprintf("New signal: %s (%.0f%%)", newD.Action, newD.Confidence*100))
		}
		return changes
	}
	if newD == nil {
		return append(changes, "Signal lost (analysis failed)")
	}

	if oldD.Action != newD.Action {
		changes = append(changes, fmt.Sprintf("⚡ %s → %s", oldD.Action, newD.Action))
	}

	confDelta := newD.Confidence - oldD.Confidence
	if math.Abs(confDelta) >= confidenceThreshold {
		arrow := "↑"
		if confDelta < 0 {
			arrow = "↓"
		}
		changes = append(changes, fmt.Sprintf("Conf %s %.0f%% → %.0f%%", arrow, oldD.Confidence*100, newD.Confidence*100))
	}

	oldPrice, oldOK := extractPrice(prior)
	newPrice, newOK := extractPrice(current)
	if oldOK && newOK && oldPrice > 0 {
		pct := (newPrice - oldPrice) / oldPrice * 100
		if math.Abs(pct) >= pricePctThreshold {
			arrow := "📈"
			if pct < 0 {
				arrow = "📉"
			}
			changes = append(changes, fmt.Sprintf("%s ¥%.0f → ¥%.0f (%+.1f%%)", arrow, oldPrice, newPrice, pct))
		}
	}

	oldR := prior.RiskReview
	newR := current.RiskReview
	if oldR != nil && newR != nil {
		if oldR.Approved != newR.Approved {
			status := "Approved ✅"
			if !newR.Approved {
				status = "Rejected ❌"
			}
			changes = append(changes, "Risk: "+status)
		}
		added, removed := concernDelta(oldR.Concerns, newR.Concerns)
		for _, c := range added {
			changes = append(changes, "🚩 +Risk: "+c)
		}
		for _, c := range removed {
			changes = append(changes, "✅ -Risk: "+c)
		}
	}

	return changes
}

// extractPrice digs the current price out of the raw data payload. The
// payload may come straight from a fetch or from a decoded snapshot,
// so numeric fields show up as float64, string, or json.Number.
func extractPrice(result *models.AnalysisResult) (float64, bool) {
	if result.RawData == nil {
		return 0, false
	}
	stockPrice, ok := result.RawData["stock_price"].(map[string]any)
	if !ok {
		return 0, false
	}
	for _, key := range []string{"current_price", "close"} {
		if v, ok := asFloat(stockPrice[key]); ok && v != 0 {
			return v, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// concernDelta returns the concerns added and removed between two
// reviews, each sorted for stable output.
func concernDelta(oldC, newC []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(oldC))
	for _, c := range oldC {
		oldSet[c] = true
	}
	newSet := make(map[string]bool, len(newC))
	for _, c := range newC {
		newSet[c] = true
	}
	for c := range newSet {
		if !oldSet[c] {
			added = append(added, c)
		}
	}
	for c := range oldSet {
		if !newSet[c] {
			removed = append(removed, c)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
