package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/convogen/pkg/conversation"
)

func TestTranscriptRendersAllSections(t *testing.T) {
	created := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	conv := &conversation.Conversation{
		ID:            "conv_abc",
		Topic:         "durian cultivation",
		Persona:       "durian farmer",
		CreatedAt:     created,
		Summary:       "A farmer asked about market prices.",
		Status:        conversation.StatusCompleted,
		SchemaVersion: conversation.SchemaVersion,
	}
	conv.AppendTurn(conversation.Turn{
		Index: 0, Role: conversation.RoleUser, Timestamp: created,
		Content: "What is the price today?", Tokens: 7, LatencyMS: 420,
	})
	conv.AppendTurn(conversation.Turn{
		Index: 1, Role: conversation.RoleAssistant,
		Timestamp: created.Add(3 * time.Second),
		Content:   "Prices are up this week.", Tokens: 7, LatencyMS: 1800,
		ToolCalls: []conversation.ToolCall{{
			Name:      "get_market_price_quote",
			Arguments: map[string]interface{}{"unit": "kg"},
			Result:    "Current price: 180000 per kg.",
			Tokens:    8,
			LatencyMS: 900,
		}},
	})
	conv.Stats = conv.ComputeStats()

	md, err := Transcript(conv)
	require.NoError(t, err)

	assert.Contains(t, md, "# Conversation conv_abc")
	assert.Contains(t, md, "**Topic:** durian cultivation")
	assert.Contains(t, md, "A farmer asked about market prices.")
	assert.Contains(t, md, "### Turn 0 — User")
	assert.Contains(t, md, "### Turn 1 — Assistant")
	assert.Contains(t, md, "`get_market_price_quote`")
	assert.Contains(t, md, "unit: kg")
	assert.Contains(t, md, "Current price: 180000 per kg.")
}
