package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// GenerationTopic is the single topic all progress events are published on.
const GenerationTopic = "convogen.generation"

// Publisher is the narrow interface the generation pipeline publishes
// progress events through. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ev Event) error
}

// NopPublisher drops all events. The zero value is ready to use.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error {
	return nil
}

var _ Publisher = NopPublisher{}

// Bus is an in-process watermill pub/sub carrying generation events. The CLI
// subscribes to it to print progress while the batch runs.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{}, NewWatermillLogger(logger)),
	}
}

func (b *Bus) Publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return b.pubSub.Publish(GenerationTopic, msg)
}

func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, GenerationTopic)
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}

var _ Publisher = (*Bus)(nil)
