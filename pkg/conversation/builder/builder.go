package builder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/convogen/pkg/conversation"
	"github.com/go-go-golems/convogen/pkg/engine"
	"github.com/go-go-golems/convogen/pkg/events"
	"github.com/go-go-golems/convogen/pkg/turngen"
)

// state enumerates the orchestration states of one conversation build.
type state int

const (
	stateStart state = iota
	stateGenerateTurn
	stateSummarize
	stateDone
	stateFailed
)

// Builder drives the generation of one full conversation: it seeds the
// timeline, alternates turn roles starting with the user, accumulates
// history, derives the summary, and returns a finalized record. A failed
// build discards the conversation entirely; no partial record ever escapes.
type Builder struct {
	turns         *turngen.Generator
	engine        engine.Engine
	publisher     events.Publisher
	clock         func() time.Time
	correlationID string
}

type Option func(*Builder)

// WithPublisher routes per-turn progress events through pub.
func WithPublisher(pub events.Publisher) Option {
	return func(b *Builder) {
		if pub != nil {
			b.publisher = pub
		}
	}
}

// WithClock overrides the creation-time source, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithCorrelationID stamps all published events with the batch correlation id.
func WithCorrelationID(id string) Option {
	return func(b *Builder) {
		b.correlationID = id
	}
}

func New(gen *turngen.Generator, eng engine.Engine, opts ...Option) (*Builder, error) {
	if gen == nil {
		return nil, errors.New("nil turn generator")
	}
	if eng == nil {
		return nil, errors.New("nil engine")
	}
	b := &Builder{
		turns:     gen,
		engine:    eng,
		publisher: events.NopPublisher{},
		clock:     time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Build generates a conversation with exactly turnCount turns.
func (b *Builder) Build(ctx context.Context, topic string, persona string, turnCount int) (*conversation.Conversation, error) {
	if turnCount < 1 {
		return nil, errors.Errorf("turn count must be >= 1, got %d", turnCount)
	}

	var conv *conversation.Conversation
	var buildErr error
	index := 0
	st := stateStart

	for {
		switch st {
		case stateStart:
			conv = &conversation.Conversation{
				ID:      "conv_" + uuid.NewString(),
				Topic:   topic,
				Persona: persona,
				// RFC3339 with millisecond precision, UTC
				CreatedAt:     b.clock().UTC().Truncate(time.Millisecond),
				Status:        conversation.StatusActive,
				Tags:          []string{topic, persona},
				SchemaVersion: conversation.SchemaVersion,
			}
			log.Info().
				Str("conversation_id", conv.ID).
				Str("topic", topic).
				Int("turn_count", turnCount).
				Msg("building conversation")
			st = stateGenerateTurn

		case stateGenerateTurn:
			role := conversation.RoleUser
			if index%2 == 1 {
				role = conversation.RoleAssistant
			}
			turn, err := b.turns.Generate(ctx, turngen.TurnRequest{
				Index:   index,
				Role:    role,
				Start:   conv.CreatedAt,
				History: conv.Turns,
				Topic:   topic,
				Persona: persona,
			})
			if err != nil {
				buildErr = err
				st = stateFailed
				continue
			}
			conv.AppendTurn(turn)
			b.publishTurn(conv, turn)
			index++
			if index == turnCount {
				st = stateSummarize
			}

		case stateSummarize:
			conv.Summary = b.summarize(ctx, conv)
			conv.Stats = conv.ComputeStats()
			conv.Status = conversation.StatusCompleted
			if err := conv.Validate(); err != nil {
				buildErr = errors.Wrap(err, "finalized conversation failed validation")
				st = stateFailed
				continue
			}
			st = stateDone

		case stateDone:
			return conv, nil

		case stateFailed:
			return nil, errors.Wrapf(buildErr, "conversation %s failed", conv.ID)
		}
	}
}

func (b *Builder) publishTurn(conv *conversation.Conversation, turn conversation.Turn) {
	ev := events.Event{
		Type:           events.EventTypeTurnGenerated,
		CorrelationID:  b.correlationID,
		ConversationID: conv.ID,
		TurnIndex:      turn.Index,
		Time:           time.Now().UTC(),
	}
	if err := b.publisher.Publish(ev); err != nil {
		log.Warn().Err(err).Msg("failed to publish turn event")
	}
	for _, tc := range turn.ToolCalls {
		ev := events.Event{
			Type:           events.EventTypeToolCallSimulated,
			CorrelationID:  b.correlationID,
			ConversationID: conv.ID,
			TurnIndex:      turn.Index,
			ToolName:       tc.Name,
			Time:           time.Now().UTC(),
		}
		if err := b.publisher.Publish(ev); err != nil {
			log.Warn().Err(err).Msg("failed to publish tool call event")
		}
	}
}
