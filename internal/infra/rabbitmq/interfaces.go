package rabbitmq

import (
	"context"
	"log/slog"
)

type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

var (
	_ PublisherInterface = (*Publisher)(nil)
	_ PublisherInterface = LogPublisher{}
)

// LogPublisher writes events to the log instead of a broker. Used when no
// RabbitMQ URL is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	slog.InfoContext(ctx, "event", "pattern", routingKey, "data", data)
	return nil
}
