package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// EventType labels the generation progress events published during a batch
// run.
type EventType string

const (
	EventTypeConversationStarted   EventType = "conversation-started"
	EventTypeTurnGenerated         EventType = "turn-generated"
	EventTypeToolCallSimulated     EventType = "tool-call-simulated"
	EventTypeConversationCompleted EventType = "conversation-completed"
	EventTypeConversationFailed    EventType = "conversation-failed"
	EventTypeBatchCompleted        EventType = "batch-completed"
)

// Event is one progress notification. CorrelationID ties all events of one
// batch run together.
type Event struct {
	Type           EventType `json:"type"`
	CorrelationID  string    `json:"correlation_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	TurnIndex      int       `json:"turn_index,omitempty"`
	ToolName       string    `json:"tool_name,omitempty"`
	Message        string    `json:"message,omitempty"`
	Time           time.Time `json:"time"`
}

func (e Event) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type))
	ev.Str("correlation_id", e.CorrelationID)
	if e.ConversationID != "" {
		ev.Str("conversation_id", e.ConversationID)
	}
	if e.ToolName != "" {
		ev.Str("tool_name", e.ToolName)
	}
	if e.Message != "" {
		ev.Str("message", e.Message)
	}
}

// NewEventFromJSON decodes an event payload published on the wire.
func NewEventFromJSON(buf []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(buf, &e); err != nil {
		return Event{}, errors.Wrap(err, "unmarshal event")
	}
	return e, nil
}
