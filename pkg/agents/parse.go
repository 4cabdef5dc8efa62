package agents

import (
	"github.com/kabuto-ai/kabuto/pkg/llm"
	"github.com/kabuto-ai/kabuto/pkg/models"
)

// Diagnostic excerpt length for unparseable structured output.
const rawTraceLen = 200

// ParseDecision decodes the trader's structured output. Malformed or invalid
// output is not an error: it degrades to a HOLD decision with zero confidence
// carrying a truncated copy of the raw text for diagnosis.
func ParseDecision(content string) *models.TradingDecision {
	fields, err := llm.DecodeJSON(content)
	if err != nil {
		return fallbackDecision(content)
	}

	decision := &models.TradingDecision{
		Action:          stringField(fields, "action", models.ActionHold),
		Confidence:      floatField(fields, "confidence", 0.5),
		Reasoning:       stringField(fields, "reasoning", "No reasoning provided"),
		Thesis:          stringField(fields, "thesis", ""),
		WatchConditions: stringSliceField(fields, "watch_conditions"),
		KeyFacts:        keyFactsField(fields, "key_facts"),
		TargetPrice:     optionalFloatField(fields, "target_price"),
		StopLoss:        optionalFloatField(fields, "stop_loss"),
		PositionSize:    stringField(fields, "position_size", ""),
	}
	if err := decision.Validate(); err != nil {
		return fallbackDecision(content)
	}
	return decision
}

func fallbackDecision(content string) *models.TradingDecision {
	return &models.TradingDecision{
		Action:     models.ActionHold,
		Confidence: 0,
		Reasoning:  "Parse error: " + truncate(content, rawTraceLen),
	}
}

// ParseRiskReview decodes the risk manager's structured output, degrading to
// a rejected review on malformed output.
func ParseRiskReview(content string) *models.RiskReview {
	fields, err := llm.DecodeJSON(content)
	if err != nil {
		return &models.RiskReview{
			Approved:  false,
			Concerns:  []string{"Unable to parse risk review"},
			Reasoning: "Parse error: " + truncate(content, rawTraceLen),
		}
	}

	approved, _ := fields["approved"].(bool)
	return &models.RiskReview{
		Approved:       approved,
		Concerns:       stringSliceField(fields, "concerns"),
		MaxPositionPct: optionalFloatField(fields, "max_position_pct"),
		Reasoning:      stringField(fields, "reasoning", ""),
	}
}

func stringField(fields map[string]any, key, fallback string) string {
	if s, ok := fields[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func floatField(fields map[string]any, key string, fallback float64) float64 {
	if f, ok := fields[key].(float64); ok {
		return f
	}
	return fallback
}

func optionalFloatField(fields map[string]any, key string) *float64 {
	if f, ok := fields[key].(float64); ok {
		return &f
	}
	return nil
}

func stringSliceField(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func keyFactsField(fields map[string]any, key string) []models.KeyFact {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	var facts []models.KeyFact
	for _, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		fact, _ := entry["fact"].(string)
		if fact == "" {
			continue
		}
		source, _ := entry["source"].(string)
		facts = append(facts, models.KeyFact{Fact: fact, Source: source})
	}
	return facts
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
