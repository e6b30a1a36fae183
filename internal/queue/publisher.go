package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultQueueName = "booking.events"

// Publisher sends booking events to a durable RabbitMQ queue, one connection
// per publish.
type Publisher struct {
	url   string
	queue string
}

func NewPublisher(url, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{url: url, queue: queue}
}

// Notify publishes event as a persistent JSON message.
func (p *Publisher) Notify(ctx context.Context, event domain.BookingEvent) error {
	body, err := json.Marshal(NewBookingEventMessage(event))
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	logger.ExternalServiceCall("RabbitMQ", "Publish", "queue", p.queue, "type", event.Type, "bookingID", event.Booking.ID)
	err = p.publish(ctx, body)
	logger.ExternalServiceResult("RabbitMQ", "Publish", err, "queue", p.queue, "bookingID", event.Booking.ID)
	return err
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
