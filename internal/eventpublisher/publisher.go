// Package eventpublisher publishes domain events to RabbitMQ on the engine's
// behalf. Errors are logged and returned so the engine can choose to ignore
// a publish failure without rolling back an already-committed booking: the
// booking is the source of truth, the event is a best-effort notification.
package eventpublisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-seat-reservation/internal/queue"
)

// Publisher publishes BookingConfirmedEvent messages to a durable queue.
type Publisher struct {
	url string
}

// New returns a Publisher that dials amqpURL on every publish call.
func New(amqpURL string) *Publisher {
	return &Publisher{url: amqpURL}
}

// PublishBookingConfirmed publishes event to the "booking.confirmed" queue.
// A fresh connection and channel are opened per call, mirroring the rest of
// this stack's broker usage: booking confirmations are rare enough relative
// to request volume that a pooled connection would add complexity without a
// measurable latency win.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		"booking.confirmed", // name
		true,                 // durable
		false,                // autoDelete
		false,                // exclusive
		false,                // noWait
		nil,                  // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                   // default exchange
		"booking.confirmed",  // routing key = queue name
		false,                // mandatory
		false,                // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
