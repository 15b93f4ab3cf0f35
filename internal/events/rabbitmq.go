package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ publishes persistent messages to a durable queue through the
// default exchange.
type RabbitMQ struct {
	conn  *amqp.Connection
	queue string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewRabbitMQ(url, queue string) (*RabbitMQ, error) {
	const op = "events.NewRabbitMQ"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	r := &RabbitMQ{conn: conn, queue: queue}
	if err := r.openChannel(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

func (r *RabbitMQ) openChannel() error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}

	if _, err := ch.QueueDeclare(
		r.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		return fmt.Errorf("queue declare: %w", err)
	}

	r.ch = ch
	return nil
}

func (r *RabbitMQ) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error {
	const op = "events.RabbitMQ.PublishBookingConfirmed"

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// a channel is closed by the broker after any channel-level error
	if r.ch == nil || r.ch.IsClosed() {
		if err := r.openChannel(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		Type:          ev.Type,
		CorrelationId: ev.TransactionID,
		Body:          body,
	}

	if err := r.ch.PublishWithContext(ctx, "", r.queue, false, false, pub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil {
		_ = r.ch.Close()
	}
	return r.conn.Close()
}
