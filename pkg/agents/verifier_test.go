package agents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabuto-ai/kabuto/internal/logging"
	"github.com/kabuto-ai/kabuto/pkg/models"
)

// stubProvider serves scripted JSON completions and counts calls.
type stubProvider struct {
	mu        sync.Mutex
	jsonCalls int
	result    map[string]any
	err       error
}

func (s *stubProvider) Complete(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("not used")
}

func (s *stubProvider) CompleteJSON(ctx context.Context, system, user string) (map[string]any, error) {
	s.mu.Lock()
	s.jsonCalls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func decisionWithFacts(facts ...models.KeyFact) *models.TradingDecision {
	return &models.TradingDecision{
		Action:     models.ActionBuy,
		Confidence: 0.7,
		Reasoning:  "original reasoning",
		Thesis:     "original thesis",
		KeyFacts:   facts,
	}
}

func TestVerifyKeyFactsRemovesHallucinated(t *testing.T) {
	// Two facts in, one absent from the ground truth: one survives and
	// the note list carries the removal.
	provider := &stubProvider{result: map[string]any{
		"verified_facts": []any{
			map[string]any{"fact": "ROE 12.0%", "source": "EDINET 2025-06-25"},
		},
		"corrections": []any{},
		"removed":     []any{"売上高¥99Tはデータ一覧に存在しないため削除"},
	}}

	decision := decisionWithFacts(
		models.KeyFact{Fact: "ROE 12.0%", Source: "EDINET 2025-06-25"},
		models.KeyFact{Fact: "売上高 ¥99T", Source: "EDINET 2025-06-25"},
	)

	verified, notes := VerifyKeyFacts(context.Background(), provider, decision, "summary", logging.NewNop())

	require.Len(t, verified.KeyFacts, 1)
	assert.Equal(t, "ROE 12.0%", verified.KeyFacts[0].Fact)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "削除")

	// The input decision is not mutated.
	assert.Len(t, decision.KeyFacts, 2)
}

func TestVerifyKeyFactsZeroFactsSkipsProvider(t *testing.T) {
	provider := &stubProvider{}
	decision := decisionWithFacts()

	verified, notes := VerifyKeyFacts(context.Background(), provider, decision, "summary", logging.NewNop())

	assert.Same(t, decision, verified)
	assert.Nil(t, notes)
	assert.Equal(t, 0, provider.jsonCalls)
}

func TestVerifyKeyFactsProviderFailureKeepsOriginal(t *testing.T) {
	provider := &stubProvider{err: errors.New("timeout")}
	decision := decisionWithFacts(models.KeyFact{Fact: "ROE 12.0%", Source: "EDINET"})

	verified, notes := VerifyKeyFacts(context.Background(), provider, decision, "summary", logging.NewNop())

	assert.Same(t, decision, verified)
	assert.Nil(t, notes)
}

func TestVerifyKeyFactsEmptyVerifiedKeepsOriginals(t *testing.T) {
	// An over-deleting verifier returns nothing; treat that as
	// unreliable and keep what we had.
	provider := &stubProvider{result: map[string]any{
		"verified_facts": []any{},
		"corrections":    []any{"spurious correction"},
		"removed":        []any{},
	}}
	decision := decisionWithFacts(models.KeyFact{Fact: "ROE 12.0%", Source: "EDINET"})

	verified, notes := VerifyKeyFacts(context.Background(), provider, decision, "summary", logging.NewNop())

	require.Len(t, verified.KeyFacts, 1)
	assert.Equal(t, "ROE 12.0%", verified.KeyFacts[0].Fact)
	assert.Empty(t, notes)
}

func TestVerifyKeyFactsCorrectionsBecomeNotes(t *testing.T) {
	provider := &stubProvider{result: map[string]any{
		"verified_facts": []any{
			map[string]any{"fact": "ROE 11.8%", "source": "EDINET 2025-06-25"},
		},
		"corrections": []any{"ROE corrected from 12.0% to 11.8%"},
		"removed":     []any{},
	}}
	decision := decisionWithFacts(models.KeyFact{Fact: "ROE 12.0%", Source: "EDINET 2025-06-25"})

	verified, notes := VerifyKeyFacts(context.Background(), provider, decision, "summary", logging.NewNop())

	require.Len(t, verified.KeyFacts, 1)
	assert.Equal(t, "ROE 11.8%", verified.KeyFacts[0].Fact)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "corrected")
}

func TestRefineDecisionUpdatesNarrativeOnly(t *testing.T) {
	provider := &stubProvider{result: map[string]any{
		"thesis":    "refined thesis",
		"reasoning": "refined reasoning",
	}}
	decision := decisionWithFacts(models.KeyFact{Fact: "ROE 11.8%", Source: "EDINET"})

	refined := RefineDecision(context.Background(), provider, decision,
		[]string{"ROE corrected"}, "summary", "en", logging.NewNop())

	assert.Equal(t, "refined thesis", refined.Thesis)
	assert.Equal(t, "refined reasoning", refined.Reasoning)
	assert.Equal(t, models.ActionBuy, refined.Action)
	assert.InDelta(t, 0.7, refined.Confidence, 1e-9)
	assert.Equal(t, decision.KeyFacts, refined.KeyFacts)

	// Original untouched.
	assert.Equal(t, "original thesis", decision.Thesis)
}

func TestRefineDecisionNoFeedbackNoCall(t *testing.T) {
	provider := &stubProvider{}
	decision := decisionWithFacts()

	refined := RefineDecision(context.Background(), provider, decision, nil, "summary", "ja", logging.NewNop())

	assert.Same(t, decision, refined)
	assert.Equal(t, 0, provider.jsonCalls)
}

func TestRefineDecisionProviderFailureKeepsOriginal(t *testing.T) {
	provider := &stubProvider{err: errors.New("down")}
	decision := decisionWithFacts()

	refined := RefineDecision(context.Background(), provider, decision,
		[]string{"note"}, "summary", "ja", logging.NewNop())

	assert.Same(t, decision, refined)
}

func TestRefineDecisionMissingFieldsKeepsOriginal(t *testing.T) {
	provider := &stubProvider{result: map[string]any{"irrelevant": true}}
	decision := decisionWithFacts()

	refined := RefineDecision(context.Background(), provider, decision,
		[]string{"note"}, "summary", "ja", logging.NewNop())

	assert.Same(t, decision, refined)
}
