package batch

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/convogen/pkg/conversation"
	"github.com/go-go-golems/convogen/pkg/events"
	"github.com/go-go-golems/convogen/pkg/scenario"
	"github.com/go-go-golems/convogen/pkg/sink"
)

// ConversationBuilder is the narrow view of a conversation build the
// coordinator depends on.
type ConversationBuilder interface {
	Build(ctx context.Context, topic string, persona string, turnCount int) (*conversation.Conversation, error)
}

// BuilderFactory constructs one builder per conversation, seeded so that a
// fixed batch seed reproduces the same records. The factory is called from
// concurrent goroutines and must hand out independent builders.
type BuilderFactory func(seed int64, correlationID string) (ConversationBuilder, error)

// Outcome is the per-conversation result of a batch run: either a completed,
// persisted conversation or a recorded failure with its reason.
type Outcome struct {
	Index          int
	ConversationID string
	Topic          string
	Persona        string
	Err            error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Config tunes the batch run.
type Config struct {
	// Concurrency bounds how many conversation builds run at once.
	Concurrency int
	// Seed is the base random seed; conversation i derives seed Seed+i.
	Seed int64
	// Scenarios optionally assigns a distinct premise per conversation.
	// When set, its length must equal the requested conversation count.
	Scenarios []scenario.Scenario
}

func DefaultConfig() Config {
	return Config{Concurrency: 2}
}

// Coordinator fans the requested conversations out over a bounded worker
// pool. Conversations are independent; a single failure never aborts its
// siblings, and outcomes always come back one per requested conversation.
type Coordinator struct {
	factory   BuilderFactory
	sink      sink.Sink
	publisher events.Publisher
	cfg       Config
}

type Option func(*Coordinator)

func WithPublisher(pub events.Publisher) Option {
	return func(c *Coordinator) {
		if pub != nil {
			c.publisher = pub
		}
	}
}

func NewCoordinator(factory BuilderFactory, s sink.Sink, cfg Config, opts ...Option) (*Coordinator, error) {
	if factory == nil {
		return nil, errors.New("nil builder factory")
	}
	if s == nil {
		return nil, errors.New("nil sink")
	}
	if cfg.Concurrency < 1 {
		return nil, errors.Errorf("concurrency must be >= 1, got %d", cfg.Concurrency)
	}
	c := &Coordinator{
		factory:   factory,
		sink:      s,
		publisher: events.NopPublisher{},
		cfg:       cfg,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Run generates req.Conversations conversations and returns one outcome per
// conversation, indexed in request order. Only request validation failures
// return an error; generation and sink failures are recorded per outcome.
func (c *Coordinator) Run(ctx context.Context, req Request) ([]Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(c.cfg.Scenarios) > 0 && len(c.cfg.Scenarios) != req.Conversations {
		return nil, &ValidationError{Err: errors.Errorf(
			"%d scenarios for %d conversations", len(c.cfg.Scenarios), req.Conversations)}
	}

	correlationID := shortuuid.New()
	log.Info().
		Str("correlation_id", correlationID).
		Int("conversations", req.Conversations).
		Int("turns", req.Turns).
		Int("concurrency", c.cfg.Concurrency).
		Msg("starting batch")

	outcomes := make([]Outcome, req.Conversations)

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Concurrency)

	for i := 0; i < req.Conversations; i++ {
		i := i
		topic, persona := req.Topic, req.Persona
		if len(c.cfg.Scenarios) > 0 {
			topic = c.cfg.Scenarios[i].Situation
			persona = c.cfg.Scenarios[i].Persona
		}

		g.Go(func() error {
			outcomes[i] = c.runOne(ctx, i, topic, persona, req.Turns, correlationID)
			return nil
		})
	}

	// Goroutines never return errors; Wait only fences completion.
	_ = g.Wait()

	c.publish(events.Event{
		Type:          events.EventTypeBatchCompleted,
		CorrelationID: correlationID,
		Time:          time.Now().UTC(),
	})

	return outcomes, nil
}

func (c *Coordinator) runOne(ctx context.Context, index int, topic string, persona string, turns int, correlationID string) Outcome {
	outcome := Outcome{Index: index, Topic: topic, Persona: persona}

	c.publish(events.Event{
		Type:          events.EventTypeConversationStarted,
		CorrelationID: correlationID,
		Message:       topic,
		Time:          time.Now().UTC(),
	})

	b, err := c.factory(c.cfg.Seed+int64(index), correlationID)
	if err != nil {
		outcome.Err = errors.Wrap(err, "construct builder")
		c.publishFailure(correlationID, outcome)
		return outcome
	}

	conv, err := b.Build(ctx, topic, persona, turns)
	if err != nil {
		outcome.Err = err
		c.publishFailure(correlationID, outcome)
		log.Error().
			Err(err).
			Int("index", index).
			Msg("conversation build failed")
		return outcome
	}
	outcome.ConversationID = conv.ID

	if err := c.sink.Write(conv); err != nil {
		outcome.Err = err
		c.publishFailure(correlationID, outcome)
		log.Error().
			Err(err).
			Str("conversation_id", conv.ID).
			Msg("conversation persist failed")
		return outcome
	}

	c.publish(events.Event{
		Type:           events.EventTypeConversationCompleted,
		CorrelationID:  correlationID,
		ConversationID: conv.ID,
		Time:           time.Now().UTC(),
	})
	return outcome
}

func (c *Coordinator) publishFailure(correlationID string, outcome Outcome) {
	c.publish(events.Event{
		Type:           events.EventTypeConversationFailed,
		CorrelationID:  correlationID,
		ConversationID: outcome.ConversationID,
		Message:        outcome.Err.Error(),
		Time:           time.Now().UTC(),
	})
}

func (c *Coordinator) publish(ev events.Event) {
	if err := c.publisher.Publish(ev); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Msg("failed to publish event")
	}
}
