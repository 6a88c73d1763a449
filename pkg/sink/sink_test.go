package sink

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/convogen/pkg/conversation"
)

func sampleConversation() *conversation.Conversation {
	created := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	conv := &conversation.Conversation{
		ID:            "conv_test",
		Topic:         "durian cultivation",
		Persona:       "durian farmer",
		CreatedAt:     created,
		Summary:       "A farmer asked about prices.",
		Status:        conversation.StatusCompleted,
		Tags:          []string{"durian cultivation", "durian farmer"},
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
			Arguments: map[string]interface{}{"commodity": "grade A produce", "unit": "kg"},
			Result:    "Current price: 180000 per kg.",
			Tokens:    8,
			LatencyMS: 900,
		}},
	})
	conv.Stats = conv.ComputeStats()
	return conv
}

func TestMarshalIsIdempotent(t *testing.T) {
	conv := sampleConversation()

	first, err := Marshal(conv)
	require.NoError(t, err)
	second, err := Marshal(conv)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMarshalFieldNames(t *testing.T) {
	buf, err := Marshal(sampleConversation())
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf, &doc))

	for _, key := range []string{"id", "topic", "persona", "created_at", "turns", "summary"} {
		assert.Contains(t, doc, key)
	}

	turns := doc["turns"].([]interface{})
	turn := turns[1].(map[string]interface{})
	for _, key := range []string{"index", "role", "timestamp", "content", "tokens", "latency_ms", "tool_calls"} {
		assert.Contains(t, turn, key)
	}

	tc := turn["tool_calls"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"name", "arguments", "result", "tokens", "latency_ms"} {
		assert.Contains(t, tc, key)
	}
}

func TestFileSinkWritesOneDocumentPerConversation(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir)
	require.NoError(t, err)

	conv := sampleConversation()
	require.NoError(t, s.Write(conv))

	buf, err := os.ReadFile(s.Path(conv.ID))
	require.NoError(t, err)

	want, err := Marshal(conv)
	require.NoError(t, err)
	assert.Equal(t, want, buf)

	var decoded conversation.Conversation
	require.NoError(t, json.Unmarshal(buf, &decoded))
	assert.Equal(t, conv.ID, decoded.ID)
	assert.Len(t, decoded.Turns, 2)
	assert.Equal(t, conv.Turns[1].ToolCalls[0].Name, decoded.Turns[1].ToolCalls[0].Name)
}

func TestFileSinkReportsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir)
	require.NoError(t, err)

	// Make the directory unwritable to force a write failure.
	require.NoError(t, os.Chmod(dir, 0o500))
	defer func() { _ = os.Chmod(dir, 0o755) }()

	err = s.Write(sampleConversation())
	require.Error(t, err)

	var sinkErr *SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "conv_test", sinkErr.ConversationID)
}
