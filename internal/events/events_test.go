package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

func testEvent() BookingConfirmed {
	return NewBookingConfirmed(&domain.Booking{
		ID:            482,
		Ref:           "B0000482",
		TransactionID: "NIBOG_482_xyz",
		UserID:        "user-1",
		EventID:       7,
		TotalPaise:    180000,
		CreatedAt:     time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC),
	})
}

func TestKafka(t *testing.T) {
	t.Run("Given healthy producer When publishing Then event is sent as JSON", func(t *testing.T) {
		sp := mocks.NewSyncProducer(t, nil)
		sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var ev BookingConfirmed
			if err := json.Unmarshal(val, &ev); err != nil {
				return err
			}
			if ev.Type != TypeBookingConfirmed || ev.BookingRef != "B0000482" || ev.TotalPaise != 180000 {
				return fmt.Errorf("unexpected event %+v", ev)
			}
			return nil
		})

		k := NewKafkaWithProducer(sp, "nibog.bookings")
		if err := k.PublishBookingConfirmed(context.Background(), testEvent()); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		if err := k.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	})

	t.Run("Given failing broker When publishing Then error is returned", func(t *testing.T) {
		sp := mocks.NewSyncProducer(t, nil)
		sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		k := NewKafkaWithProducer(sp, "nibog.bookings")
		err := k.PublishBookingConfirmed(context.Background(), testEvent())
		if !errors.Is(err, sarama.ErrOutOfBrokers) {
			t.Fatalf("expected ErrOutOfBrokers, got %v", err)
		}
		_ = k.Close()
	})
}

type fakePubSub struct {
	got []any
	err error
}

func (f *fakePubSub) Publish(_ context.Context, v any) error {
	f.got = append(f.got, v)
	return f.err
}

func TestRedis(t *testing.T) {
	ps := &fakePubSub{}
	r := NewRedis(ps)

	if err := r.PublishBookingConfirmed(context.Background(), testEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(ps.got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ps.got))
	}
	if ev, ok := ps.got[0].(BookingConfirmed); !ok || ev.BookingID != 482 {
		t.Errorf("unexpected payload %#v", ps.got[0])
	}
}

func TestNew(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		p, err := New(Config{Broker: "none"}, nil, nil)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, ok := p.(Noop); !ok {
			t.Errorf("expected Noop, got %T", p)
		}
		if err := p.PublishBookingConfirmed(context.Background(), testEvent()); err != nil {
			t.Errorf("noop publish failed: %v", err)
		}
	})

	t.Run("redis", func(t *testing.T) {
		p, err := New(Config{Broker: "redis"}, &fakePubSub{}, nil)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, ok := p.(*Redis); !ok {
			t.Errorf("expected *Redis, got %T", p)
		}
	})

	t.Run("redis without pubsub", func(t *testing.T) {
		if _, err := New(Config{Broker: "redis"}, nil, nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := New(Config{Broker: "nats"}, nil, nil); err == nil {
			t.Fatal("expected error")
		}
	})
}
