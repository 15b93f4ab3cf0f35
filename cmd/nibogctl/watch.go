package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
	"github.com/u3m2a1/nibog-sub001/internal/events"
	redisx "github.com/u3m2a1/nibog-sub001/internal/redis"
)

func newWatchCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print booking-confirmed events published on Redis",
		Long:  "Print booking-confirmed events as they are published. Only sees events when EVENTS_BROKER=redis.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := connect(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			ps := redisx.NewPubSub(deps.Redis, redisx.ChannelBookingConfirmed())
			err = ps.Subscribe(cmd.Context(), func(_ context.Context, payload []byte) {
				var ev events.BookingConfirmed
				if err := json.Unmarshal(payload, &ev); err != nil {
					printf(cmd, "undecodable event: %s\n", payload)
					return
				}
				printf(cmd, "%s\t%s\t%s\t%d\n", ev.ConfirmedAt.Format("15:04:05"), ev.BookingRef, ev.TransactionID, ev.TotalPaise)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
