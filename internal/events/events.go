// Package events publishes booking lifecycle events to a message broker.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

const TypeBookingConfirmed = "booking.confirmed"

type BookingConfirmed struct {
	Type          string    `json:"type"`
	BookingID     int64     `json:"booking_id"`
	BookingRef    string    `json:"booking_ref"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	TotalPaise    int64     `json:"total_paise"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

func NewBookingConfirmed(b *domain.Booking) BookingConfirmed {
	return BookingConfirmed{
		Type:          TypeBookingConfirmed,
		BookingID:     b.ID,
		BookingRef:    b.Ref,
		TransactionID: b.TransactionID,
		UserID:        b.UserID,
		EventID:       b.EventID,
		TotalPaise:    b.TotalPaise,
		PaymentMethod: b.PaymentMethod,
		ConfirmedAt:   b.CreatedAt.UTC(),
	}
}

type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error
	Close() error
}

// Noop drops every event. Used when EVENTS_BROKER=none.
type Noop struct {
	Logger *slog.Logger
}

func (n Noop) PublishBookingConfirmed(_ context.Context, ev BookingConfirmed) error {
	if n.Logger != nil {
		n.Logger.Debug("event dropped, no broker configured", "type", ev.Type, "booking_ref", ev.BookingRef)
	}
	return nil
}

func (Noop) Close() error { return nil }

type Config struct {
	Broker       string
	KafkaBrokers []string
	KafkaTopic   string
	RabbitURL    string
	RabbitQueue  string
}

// New builds the publisher named by cfg.Broker. The redis broker needs a
// PubSub; the others ignore it.
func New(cfg Config, pubsub PubSub, logger *slog.Logger) (Publisher, error) {
	const op = "events.New"

	switch cfg.Broker {
	case "kafka":
		p, err := NewKafka(KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return p, nil
	case "rabbitmq":
		p, err := NewRabbitMQ(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return p, nil
	case "redis":
		if pubsub == nil {
			return nil, fmt.Errorf("%s: redis broker without pubsub", op)
		}
		return NewRedis(pubsub), nil
	case "", "none":
		return Noop{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("%s: unknown broker %q", op, cfg.Broker)
	}
}
