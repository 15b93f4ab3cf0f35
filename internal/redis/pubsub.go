package redisx

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// PubSub fans JSON messages out over a single Redis channel. Delivery is
// at-most-once; subscribers that are not connected miss messages.
type PubSub struct {
	rdb     *redis.Client
	channel string
}

func NewPubSub(rdb *redis.Client, channel string) *PubSub {
	return &PubSub{
		rdb:     rdb,
		channel: channel,
	}
}

func (p *PubSub) Publish(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, handing every payload to handler until ctx is done or
// the subscription is closed.
func (p *PubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, payload []byte)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			handler(ctx, []byte(m.Payload))
		}
	}
}
