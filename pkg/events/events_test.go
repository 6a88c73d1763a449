package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTripsThroughJSON(t *testing.T) {
	ev := Event{
		Type:           EventTypeTurnGenerated,
		CorrelationID:  "batch-1",
		ConversationID: "conv_abc",
		TurnIndex:      3,
		ToolName:       "get_weather_forecast",
		Time:           time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	bus := NewBus(zerolog.Nop())
	defer func() {
		_ = bus.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ev))

	select {
	case msg := <-messages:
		decoded, err := NewEventFromJSON(msg.Payload)
		require.NoError(t, err)
		msg.Ack()
		assert.Equal(t, ev, decoded)
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestNewEventFromJSONRejectsGarbage(t *testing.T) {
	_, err := NewEventFromJSON([]byte("not json"))
	require.Error(t, err)
}

func TestNopPublisherAcceptsEverything(t *testing.T) {
	var pub NopPublisher
	require.NoError(t, pub.Publish(Event{Type: EventTypeBatchCompleted}))
}
