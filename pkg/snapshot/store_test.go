package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabuto-ai/kabuto/internal/logging"
	"github.com/kabuto-ai/kabuto/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "snapshots.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := openTestStore(t)

	result := &models.AnalysisResult{
		Code:        "7203",
		CompanyName: "トヨタ自動車",
		Decision: &models.TradingDecision{
			Action:     models.ActionBuy,
			Confidence: 0.72,
			Reasoning:  "strong fundamentals",
		},
		PhaseErrors: map[string]string{},
		Timestamp:   time.Now(),
	}
	require.NoError(t, store.Save(result))

	loaded := store.Load("7203")
	require.NotNil(t, loaded)
	assert.Equal(t, "トヨタ自動車", loaded.CompanyName)
	require.NotNil(t, loaded.Decision)
	assert.Equal(t, models.ActionBuy, loaded.Decision.Action)
	assert.InDelta(t, 0.72, loaded.Decision.Confidence, 1e-9)
}

func TestStoreLoadMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)
	assert.Nil(t, store.Load("9999"))
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := openTestStore(t)

	first := &models.AnalysisResult{
		Code:     "6758",
		Decision: &models.TradingDecision{Action: models.ActionHold, Confidence: 0.5, Reasoning: "wait"},
	}
	require.NoError(t, store.Save(first))

	second := &models.AnalysisResult{
		Code:     "6758",
		Decision: &models.TradingDecision{Action: models.ActionSell, Confidence: 0.8, Reasoning: "deterioration"},
	}
	require.NoError(t, store.Save(second))

	loaded := store.Load("6758")
	require.NotNil(t, loaded)
	assert.Equal(t, models.ActionSell, loaded.Decision.Action)
}

func TestStoreCorruptRowTreatedAsMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.db.Exec(`INSERT INTO snapshots (code, result, updated_at) VALUES (?, ?, ?)`,
		"7203", "{not json", time.Now())
	require.NoError(t, err)

	assert.Nil(t, store.Load("7203"))

	// The corrupt row must not block the next save.
	require.NoError(t, store.Save(&models.AnalysisResult{Code: "7203"}))
	assert.NotNil(t, store.Load("7203"))
}
