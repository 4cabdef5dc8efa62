// Package models defines the data artifacts produced by the analysis pipeline.
package models

import (
	"fmt"
	"time"
)

// Valid trading actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// AgentReport is the output of a single agent invocation.
type AgentReport struct {
	AgentName   string   `json:"agent_name"`
	DisplayName string   `json:"display_name"`
	Content     string   `json:"content"`
	DataSources []string `json:"data_sources,omitempty"`
}

// DebateResult holds the final bull and bear cases after all debate rounds.
type DebateResult struct {
	BullCase AgentReport `json:"bull_case"`
	BearCase AgentReport `json:"bear_case"`
	Rounds   int         `json:"rounds"`
}

// KeyFact is a claimed supporting fact with its source label.
type KeyFact struct {
	Fact   string `json:"fact"`
	Source string `json:"source"`
}

// TradingDecision is the trader's structured verdict. Action and confidence
// are fixed once produced; only the fact verifier replaces KeyFacts and only
// the refine step replaces Thesis/Reasoning.
type TradingDecision struct {
	Action          string    `json:"action"`
	Confidence      float64   `json:"confidence"`
	Reasoning       string    `json:"reasoning"`
	Thesis          string    `json:"thesis,omitempty"`
	WatchConditions []string  `json:"watch_conditions,omitempty"`
	KeyFacts        []KeyFact `json:"key_facts,omitempty"`
	TargetPrice     *float64  `json:"target_price,omitempty"`
	StopLoss        *float64  `json:"stop_loss,omitempty"`
	PositionSize    string    `json:"position_size,omitempty"`
}

// Validate checks the action and confidence bounds.
func (d *TradingDecision) Validate() error {
	switch d.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return fmt.Errorf("invalid action %q", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range [0,1]", d.Confidence)
	}
	return nil
}

// RiskReview is the risk manager's verdict on a trading decision.
type RiskReview struct {
	Approved       bool     `json:"approved"`
	Concerns       []string `json:"concerns,omitempty"`
	MaxPositionPct *float64 `json:"max_position_pct,omitempty"`
	Reasoning      string   `json:"reasoning"`
}

// AnalysisResult is the terminal artifact of one pipeline run. It is assembled
// once from whatever the phases produced and never mutated afterwards.
type AnalysisResult struct {
	Code           string            `json:"code"`
	CompanyName    string            `json:"company_name,omitempty"`
	AnalystReports []AgentReport     `json:"analyst_reports"`
	Debate         *DebateResult     `json:"debate,omitempty"`
	Decision       *TradingDecision  `json:"decision,omitempty"`
	RiskReview     *RiskReview       `json:"risk_review,omitempty"`
	SourcesUsed    []string          `json:"sources_used,omitempty"`
	PhaseErrors    map[string]string `json:"phase_errors,omitempty"`
	RawData        map[string]any    `json:"raw_data,omitempty"`
	Model          string            `json:"model"`
	Timestamp      time.Time         `json:"timestamp"`
}

// PortfolioResult partitions a multi-stock run into successes and failures.
// len(Results)+len(FailedCodes) always equals len(Codes).
type PortfolioResult struct {
	Codes       []string         `json:"codes"`
	Results     []AnalysisResult `json:"results"`
	FailedCodes []string         `json:"failed_codes"`
	Model       string           `json:"model"`
	Timestamp   time.Time        `json:"timestamp"`
}
