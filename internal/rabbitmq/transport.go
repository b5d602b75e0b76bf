package rabbitmq

import (
	"context"
	"strings"

	"github.com/fabricioGuac/chat-fusion/internal/fanout"
)

// EventTransport adapts a Publisher to the notification fanout, exporting
// every chat and user event to the broker for downstream consumers (push
// notification workers, analytics).
type EventTransport struct {
	publisher Publisher
}

// NewEventTransport constructs an EventTransport.
func NewEventTransport(publisher Publisher) *EventTransport {
	return &EventTransport{publisher: publisher}
}

// Publish maps a fanout destination to a topic routing key:
// "chat/{id}" becomes "chat.{id}" and "notifications/{user}" becomes
// "notifications.{user}".
func (t *EventTransport) Publish(ctx context.Context, destination string, event fanout.Event) error {
	routingKey := strings.ReplaceAll(destination, "/", ".")
	return t.publisher.Publish(ctx, routingKey, event)
}
