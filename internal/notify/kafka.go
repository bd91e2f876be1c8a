package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

// AlertEvent is the wire form of one fired-alert notification.
type AlertEvent struct {
	EventType    string              `json:"event_type"`
	Notification models.Notification `json:"notification"`
	Timestamp    time.Time           `json:"timestamp"`
}

// KafkaSink publishes fired-alert notifications to a Kafka topic so external
// consumers (chat bots, paging, audit) can react to them. As with every
// Sink, failures are logged by the queue and never propagated.
type KafkaSink struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaSink creates a producer for alert events.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaSink{writer: writer, topic: topic}
}

// Notify publishes one ALERT_TRIGGERED event per notification.
func (s *KafkaSink) Notify(notifications []models.Notification) error {
	msgs := make([]kafka.Message, 0, len(notifications))
	for _, n := range notifications {
		event := AlertEvent{
			EventType:    "ALERT_TRIGGERED",
			Notification: n,
			Timestamp:    time.Now(),
		}
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal alert event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(n.Title),
			Value: data,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write alert events to kafka: %w", err)
	}
	return nil
}

// Close closes the underlying producer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
