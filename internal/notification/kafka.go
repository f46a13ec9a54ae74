package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic is the Kafka topic ledger events are published to.
const DefaultTopic = "petty_cash_events"

type kafkaEvent struct {
	EventID string `json:"event_id"`
	Message
}

// KafkaNotifier publishes ledger events to a Kafka topic.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier constructs a notifier writing to the given brokers.
func NewKafkaNotifier(brokers []string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    DefaultTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Send publishes the event. Each event carries a fresh identifier so
// downstream consumers can deduplicate.
func (n *KafkaNotifier) Send(ctx context.Context, message Message) error {
	data, err := json.Marshal(kafkaEvent{EventID: uuid.NewString(), Message: message})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{Value: data})
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
