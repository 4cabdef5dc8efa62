package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kabuto-ai/kabuto/pkg/llm"
	"github.com/kabuto-ai/kabuto/pkg/models"
)

const verifierSystemPrompt = `あなたは金融リサーチのファクトチェッカーです。

投資判断の「根拠データ（key_facts）」を、提供された「検証済みデータ一覧」と照合します。

各key_factについて以下を実施してください:
1. VERIFY: 数値・事実がデータ一覧に存在するか確認
2. CORRECT: 出典ラベルが間違っていれば正しいものに修正
3. KEEP: データ一覧に存在する事実は積極的に保持
4. REMOVE: データ一覧に存在しない数値・事実は削除

以下のJSON形式で返してください:
{
  "verified_facts": [{"fact": "...", "source": "..."}],
  "corrections": ["修正内容の説明（なければ空リスト）"],
  "removed": ["削除した事実と理由（なければ空リスト）"]
}

判断に迷う場合はデータ一覧に存在する事実を優先して保持してください。`

const refineSystemPromptJA = `あなたはプロのトレーダーです。ファクトチェッカーから修正フィードバックを受け取りました。

**最重要**: 数値の正しい値は「検証済みデータ一覧」が唯一の権威情報です。
フィードバックテキストに数値が含まれていても、必ず「検証済みデータ一覧」の数値を使用してください。

修正内容を踏まえて、thesis（投資テーゼ）と reasoning を更新してください。
action（BUY/SELL/HOLD）とconfidenceは変更しないでください。

以下のJSON形式で返してください:
{"thesis": "更新後の投資テーゼ", "reasoning": "更新後の根拠サマリー"}`

const refineSystemPromptEN = `You are a professional trader. You have received correction feedback from a fact checker.

**CRITICAL**: The Verified Data Summary is the sole authority for correct values.
Do NOT use numbers from the feedback text — always reference the Verified Data Summary.

Update the thesis and reasoning based on the corrections.
Do NOT change the action (BUY/SELL/HOLD) or confidence.

Return valid JSON:
{"thesis": "updated investment thesis", "reasoning": "updated decision summary"}`

// VerifyKeyFacts cross-checks the decision's key facts against the verified
// data summary. It returns the (possibly corrected) decision and the list of
// correction/removal notes feeding the refine step. It never fails: provider
// errors yield the original decision with no notes, and an empty verified
// list with non-empty originals keeps the originals.
func VerifyKeyFacts(ctx context.Context, provider llm.Provider, decision *models.TradingDecision, dataSummary string, log *slog.Logger) (*models.TradingDecision, []string) {
	if len(decision.KeyFacts) == 0 {
		return decision, nil
	}

	factsJSON, err := json.MarshalIndent(decision.KeyFacts, "", "  ")
	if err != nil {
		return decision, nil
	}

	user := fmt.Sprintf("%s\n\n## 確認対象のkey_facts\n%s\n\n上記key_factsをデータ一覧と照合し、JSON形式で返してください。",
		dataSummary, factsJSON)

	result, err := provider.CompleteJSON(ctx, verifierSystemPrompt, user)
	if err != nil {
		log.Warn("fact verifier failed, keeping original facts", "error", err)
		return decision, nil
	}

	verified, notes := parseVerification(result, decision.KeyFacts, log)
	out := *decision
	out.KeyFacts = verified
	return &out, notes
}

func parseVerification(result map[string]any, originals []models.KeyFact, log *slog.Logger) ([]models.KeyFact, []string) {
	verified := keyFactsField(result, "verified_facts")
	corrections := stringSliceField(result, "corrections")
	removed := stringSliceField(result, "removed")

	if len(corrections) > 0 {
		log.Info("fact verifier corrections", "count", len(corrections))
	}
	if len(removed) > 0 {
		log.Info("fact verifier removed hallucinated facts", "count", len(removed))
	}

	// Empty verified list with non-empty originals means the verifier over-
	// deleted or returned garbage; keep the originals.
	if len(verified) == 0 && len(originals) > 0 {
		log.Warn("fact verifier returned empty list, keeping originals")
		return originals, nil
	}

	return verified, append(corrections, removed...)
}

// RefineDecision re-derives thesis and reasoning after fact corrections,
// citing numbers from the data summary only. Action and confidence are never
// touched. Any failure, or a response missing both fields, leaves the
// decision unchanged.
func RefineDecision(ctx context.Context, provider llm.Provider, decision *models.TradingDecision, feedback []string, dataSummary, language string, log *slog.Logger) *models.TradingDecision {
	if len(feedback) == 0 {
		return decision
	}

	system := refineSystemPromptJA
	if language == "en" {
		system = refineSystemPromptEN
	}

	decisionJSON, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return decision
	}

	var feedbackText strings.Builder
	for _, f := range feedback {
		fmt.Fprintf(&feedbackText, "- %s\n", f)
	}

	user := fmt.Sprintf("## Current Decision\n%s\n\n## Fact Checker Feedback\n%s\n## Verified Data Summary\n%s\n\nUpdate the thesis and reasoning based on the feedback above.",
		decisionJSON, feedbackText.String(), dataSummary)

	result, err := provider.CompleteJSON(ctx, system, user)
	if err != nil {
		log.Warn("refine failed, keeping original decision", "error", err)
		return decision
	}

	thesis := stringField(result, "thesis", "")
	reasoning := stringField(result, "reasoning", "")
	if thesis == "" && reasoning == "" {
		return decision
	}

	out := *decision
	if thesis != "" {
		out.Thesis = thesis
	}
	if reasoning != "" {
		out.Reasoning = reasoning
	}
	log.Info("refine updated thesis/reasoning")
	return &out
}
