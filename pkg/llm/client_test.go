package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONPlainObject(t *testing.T) {
	fields, err := DecodeJSON(`{"action": "BUY", "confidence": 0.7}`)
	require.NoError(t, err)
	assert.Equal(t, "BUY", fields["action"])
	assert.Equal(t, 0.7, fields["confidence"])
}

func TestDecodeJSONFencedBlock(t *testing.T) {
	raw := "```json\n{\"approved\": true}\n```"
	fields, err := DecodeJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, true, fields["approved"])
}

func TestDecodeJSONSurroundingProse(t *testing.T) {
	raw := `Sure, here is the decision you asked for:

{"action": "SELL", "reasoning": "margin compression"}

Hope that helps!`
	fields, err := DecodeJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "SELL", fields["action"])
}

func TestDecodeJSONNestedBraces(t *testing.T) {
	raw := `prefix {"outer": {"inner": 1}, "list": [{"a": 2}]} suffix`
	fields, err := DecodeJSON(raw)
	require.NoError(t, err)
	outer, ok := fields["outer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, outer["inner"])
}

func TestDecodeJSONNoObject(t *testing.T) {
	_, err := DecodeJSON("no json here at all")
	assert.Error(t, err)
}

func TestDecodeJSONMalformed(t *testing.T) {
	_, err := DecodeJSON(`{"action": "BUY",`)
	assert.Error(t, err)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o3-mini"))
	assert.True(t, isReasoningModel("deepseek-r1"))
	assert.False(t, isReasoningModel("gpt-4o-mini"))
	assert.False(t, isReasoningModel("deepseek-chat"))
}
