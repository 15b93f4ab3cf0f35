package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status <transactionId>",
		Short: "Ask the gateway once for the status of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := connect(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			out, err := deps.Gateway.CheckStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printf(cmd, "%s\t%s\t%s\n", out.TransactionID, out.Status, out.ProviderRef)
			return nil
		},
	}
}

func newRecheckCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "recheck <transactionId>",
		Short: "Check a transaction once and book it if it was paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := connect(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			out, err := deps.Services.Payments.Recheck(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printf(cmd, "%s\t%s\t%s\n", out.TransactionID, out.Status, out.State)
			if out.Booking != nil {
				printf(cmd, "booking %s (id %d), created=%t\n", out.Booking.Ref, out.Booking.ID, out.Created)
			}
			for _, name := range out.EffectsFailed {
				printf(cmd, "effect failed: %s\n", name)
			}
			return nil
		},
	}
}

func newResendCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "resend <bookingId>",
		Short: "Email the ticket of a booking to the parent again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookingID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid booking id %q", args[0])
			}

			deps, err := connect(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.Services.Tickets.ResendTicket(cmd.Context(), bookingID); err != nil {
				return err
			}

			printf(cmd, "ticket for booking %d sent\n", bookingID)
			return nil
		},
	}
}
