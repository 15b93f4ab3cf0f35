package events

import (
	"context"
	"fmt"
)

type PubSub interface {
	Publish(ctx context.Context, v any) error
}

// Redis fans events out over Redis pub/sub. Subscribers that are offline
// miss events, so it suits dashboards and tooling rather than consumers
// that need every message.
type Redis struct {
	pubsub PubSub
}

func NewRedis(pubsub PubSub) *Redis {
	return &Redis{pubsub: pubsub}
}

func (r *Redis) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error {
	const op = "events.Redis.PublishBookingConfirmed"

	if err := r.pubsub.Publish(ctx, ev); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) Close() error { return nil }
