package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/convogen/pkg/conversation"
	"github.com/go-go-golems/convogen/pkg/scenario"
)

type fakeBuilder struct {
	fail  bool
	topic string
}

func (b *fakeBuilder) Build(ctx context.Context, topic string, persona string, turnCount int) (*conversation.Conversation, error) {
	if b.fail {
		return nil, errors.New("simulated transient failure exhausted retries")
	}
	created := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	conv := &conversation.Conversation{
		ID:            "conv_" + topic,
		Topic:         topic,
		Persona:       persona,
		CreatedAt:     created,
		Status:        conversation.StatusCompleted,
		SchemaVersion: conversation.SchemaVersion,
	}
	for i := 0; i < turnCount; i++ {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		conv.AppendTurn(conversation.Turn{
			Index:     i,
			Role:      role,
			Timestamp: created.Add(time.Duration(i) * 5 * time.Second),
			Content:   "text",
			Tokens:    1,
			LatencyMS: 1000,
		})
	}
	conv.Stats = conv.ComputeStats()
	return conv, nil
}

type memorySink struct {
	mu     sync.Mutex
	writes []*conversation.Conversation
	fail   bool
}

func (s *memorySink) Write(conv *conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.writes = append(s.writes, conv)
	return nil
}

func factoryFailingAt(failIndex int, seedBase int64) BuilderFactory {
	return func(seed int64, correlationID string) (ConversationBuilder, error) {
		index := int(seed - seedBase)
		return &fakeBuilder{fail: index == failIndex, topic: "t"}, nil
	}
}

func TestRunRecordsFailureWithoutAbortingSiblings(t *testing.T) {
	s := &memorySink{}
	c, err := NewCoordinator(factoryFailingAt(2, 100), s, Config{Concurrency: 2, Seed: 100})
	require.NoError(t, err)

	outcomes, err := c.Run(context.Background(), Request{
		Topic: "topic", Persona: "persona", Conversations: 5, Turns: 4,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	succeeded := 0
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		if o.Succeeded() {
			succeeded++
			assert.NotEmpty(t, o.ConversationID)
		} else {
			assert.Equal(t, 2, o.Index)
			assert.Error(t, o.Err)
		}
	}
	assert.Equal(t, 4, succeeded)
	assert.Len(t, s.writes, 4)

	// Successful records look the same as in a run with no failures.
	for _, conv := range s.writes {
		require.NoError(t, conv.Validate())
		assert.Len(t, conv.Turns, 4)
	}
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	s := &memorySink{}
	c, err := NewCoordinator(factoryFailingAt(-1, 0), s, DefaultConfig())
	require.NoError(t, err)

	for _, req := range []Request{
		{Topic: "", Persona: "p", Conversations: 1, Turns: 1},
		{Topic: "t", Persona: "", Conversations: 1, Turns: 1},
		{Topic: "t", Persona: "p", Conversations: 0, Turns: 1},
		{Topic: "t", Persona: "p", Conversations: 1, Turns: 0},
	} {
		_, err := c.Run(context.Background(), req)
		require.Error(t, err)

		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	}
	assert.Empty(t, s.writes, "nothing may be generated for an invalid request")
}

func TestRunRecordsSinkFailuresPerConversation(t *testing.T) {
	s := &memorySink{fail: true}
	c, err := NewCoordinator(factoryFailingAt(-1, 0), s, DefaultConfig())
	require.NoError(t, err)

	outcomes, err := c.Run(context.Background(), Request{
		Topic: "t", Persona: "p", Conversations: 3, Turns: 2,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.False(t, o.Succeeded())
	}
}

func TestRunUsesScenarioPremises(t *testing.T) {
	s := &memorySink{}
	scenarios := []scenario.Scenario{
		{Situation: "first harvest", Persona: "new farmer"},
		{Situation: "export pricing", Persona: "trader"},
	}
	c, err := NewCoordinator(factoryFailingAt(-1, 0), s,
		Config{Concurrency: 1, Scenarios: scenarios})
	require.NoError(t, err)

	outcomes, err := c.Run(context.Background(), Request{
		Topic: "base topic", Persona: "base persona", Conversations: 2, Turns: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "first harvest", outcomes[0].Topic)
	assert.Equal(t, "new farmer", outcomes[0].Persona)
	assert.Equal(t, "export pricing", outcomes[1].Topic)
}

func TestRunRejectsScenarioCountMismatch(t *testing.T) {
	s := &memorySink{}
	c, err := NewCoordinator(factoryFailingAt(-1, 0), s,
		Config{Concurrency: 1, Scenarios: []scenario.Scenario{{Situation: "s", Persona: "p"}}})
	require.NoError(t, err)

	_, err = c.Run(context.Background(), Request{
		Topic: "t", Persona: "p", Conversations: 3, Turns: 1,
	})
	require.Error(t, err)
}
