package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeclareActivityQueue binds the durable activity queue to every post event.
func DeclareActivityQueue(ch *amqp.Channel) error {
	if err := DeclareExchange(ch); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, BindingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Consume delivers activity events to handle until ctx is done or the channel
// closes. Undecodable messages are dropped; handler errors requeue once.
func Consume(ctx context.Context, ch *amqp.Channel, handle func(context.Context, Event) error, logger *slog.Logger) error {
	if err := DeclareActivityQueue(ch); err != nil {
		return err
	}
	deliveries, err := ch.Consume(QueueName, "activity-worker", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume events: %w", err)
	}
	logger.Info("event consumer started", "queue", QueueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("event delivery channel closed")
			}
			handleDelivery(ctx, d, handle, logger)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handle func(context.Context, Event) error, logger *slog.Logger) {
	var e Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		logger.Error("invalid event body", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if err := handle(ctx, e); err != nil {
		logger.Error("event handler failed", "type", e.Type, "post_id", e.Payload.PostID, "error", err)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack", "error", err)
	}
}

// LogEvent is an event handler that records each event.
func LogEvent(logger *slog.Logger) func(context.Context, Event) error {
	return func(ctx context.Context, e Event) error {
		logger.InfoContext(ctx, "post event received",
			"type", e.Type,
			"post_id", e.Payload.PostID,
			"title", e.Payload.Title,
			"brand", e.Payload.Brand,
			"platform", e.Payload.Platform,
			"status", e.Payload.Status,
		)
		return nil
	}
}
