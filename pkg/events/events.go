package events

import (
	"context"
	"time"

	"rentals/pkg/kafka"
	"rentals/pkg/logger"
)

const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	ConversationCreated  = "conversation.created"
	MessageSent          = "message.sent"
	MessageRead          = "message.read"
)

const Source = "rentals"

// Event is a domain fact emitted after a successful commit.
type Event struct {
	Type        string
	AggregateID string
	ActorID     string
	OccurredAt  time.Time
	Payload     any
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Sender is the subset of the Kafka producer used for publishing.
type Sender interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer Sender
}

func NewKafkaPublisher(producer Sender) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys the message by aggregate id so events for one booking or
// conversation land on the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := NewMessage(event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func NewMessage(event Event) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(event.AggregateID).
		WithEventType(event.Type).
		WithHeader(kafka.HeaderAggregateID, event.AggregateID).
		WithHeader(kafka.HeaderActorID, event.ActorID).
		WithSource(Source).
		WithTimestamp(event.OccurredAt).
		WithValue(event.Payload).
		Build()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// Emit publishes and logs failures. Events never fail the request that produced them.
func Emit(ctx context.Context, publisher Publisher, log *logger.Logger, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish domain event",
			"event_type", event.Type,
			"aggregate_id", event.AggregateID,
			"error", err,
		)
	}
}
