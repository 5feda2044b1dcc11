package notify

import (
	"context"

	"studiobook/pkg/kafka"
)

const (
	EventTypeStatusChanged = "session.status.changed"
	eventSource            = "sessions-service"
)

type kafkaNotifier struct {
	producer *kafka.Producer
}

// NewKafkaNotifier wraps a producer publishing to the notifications topic.
// Messages are keyed by recipient email so one user's notifications stay
// ordered on a single partition.
func NewKafkaNotifier(producer *kafka.Producer) Notifier {
	return &kafkaNotifier{producer: producer}
}

func (n *kafkaNotifier) Notify(ctx context.Context, notification Notification) error {
	msg := kafka.NewMessage().
		WithKey(notification.RecipientEmail).
		WithValue(notification).
		WithEventType(EventTypeStatusChanged).
		WithSource(eventSource).
		Build()

	return n.producer.Publish(ctx, msg)
}

func (n *kafkaNotifier) Close() error {
	return n.producer.Close()
}
