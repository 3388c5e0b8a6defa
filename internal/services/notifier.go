package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// EventPublisher emits notification events for the external notifier.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event)
}

// Notifier publishes notification events to Kafka. Publishing is
// best-effort: a broker failure is logged and never fails the business
// operation that produced the event.
type Notifier struct {
	writer KafkaWriter
}

// NewNotifier creates a new Notifier.
func NewNotifier(writer KafkaWriter) *Notifier {
	return &Notifier{writer: writer}
}

// Publish emits one event to the notification topic.
func (n *Notifier) Publish(ctx context.Context, event models.Event) {
	if n.writer == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "event_type", event.Type)
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("Failed to marshal event for Kafka", "event_type", event.Type, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.SubjectID),
		Value: data,
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish event to Kafka", "event_type", event.Type, "error", err)
	} else {
		logger.Log.Infow("Event published to Kafka", "event_type", event.Type, "subject", event.SubjectID)
	}
}
