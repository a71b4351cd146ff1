package queue

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventsExchange is the topic exchange downstream services (kitchen display,
// reporting) bind against.
const EventsExchange = "pos.events"

// routingKeys maps broadcast event names to their exchange routing keys.
var routingKeys = map[string]string{
	"order-created":        "order.created",
	"order-updated":        "order.updated",
	"order-status-updated": "order.status.updated",
	"table-status-changed": "table.status.changed",
	"payment-received":     "payment.received",
}

// Publisher mirrors engine events onto RabbitMQ. Like the socket hub it is
// best effort; a broker outage degrades to a warning log.
type Publisher struct {
	Client *Client
	Logger *zap.Logger
}

func NewPublisher(client *Client, logger *zap.Logger) (*Publisher, error) {
	if err := client.EnsureExchange(EventsExchange); err != nil {
		return nil, err
	}
	return &Publisher{Client: client, Logger: logger}, nil
}

func (p *Publisher) Emit(event string, data map[string]any) {
	key, ok := routingKeys[event]
	if !ok {
		key = event
	}

	payload := make(map[string]any, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload["event"] = event
	payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Client.PublishJSON(ctx, EventsExchange, key, payload); err != nil {
		p.Logger.Warn("event publish failed",
			zap.String("event", event),
			zap.String("routingKey", key),
			zap.Error(err),
		)
	}
}
