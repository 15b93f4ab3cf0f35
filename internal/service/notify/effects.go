package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/events"
	"github.com/u3m2a1/nibog-sub001/internal/render"
	"github.com/u3m2a1/nibog-sub001/internal/uow"
)

type TicketSources interface {
	TicketSource(ctx context.Context, bookingID int64) (*domain.TicketSource, error)
}

type TicketMailer interface {
	SendTicketEmail(ctx context.Context, data TicketEmailData) SendResult
	SendBookingConfirmation(ctx context.Context, data BookingConfirmation) SendResult
}

type BookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev events.BookingConfirmed) error
}

// Effects builds the post-commit side effects of a new booking. Each one
// is a separate uow.Hook, so a failed email never stops the event from
// being published and neither can undo the booking.
type Effects struct {
	tickets   TicketSources
	mailer    TicketMailer
	publisher BookingPublisher
	logger    *slog.Logger
}

func NewEffects(tickets TicketSources, mailer TicketMailer, publisher BookingPublisher, logger *slog.Logger) *Effects {
	if logger == nil {
		logger = slog.Default()
	}
	return &Effects{tickets: tickets, mailer: mailer, publisher: publisher, logger: logger}
}

func (e *Effects) For(b *domain.Booking) []uow.Hook {
	booking := *b

	return []uow.Hook{
		{Name: "ticket-email", Fn: func(ctx context.Context) error {
			return e.sendTicket(ctx, &booking)
		}},
		{Name: "booking-confirmed-event", Fn: func(ctx context.Context) error {
			return e.publisher.PublishBookingConfirmed(ctx, events.NewBookingConfirmed(&booking))
		}},
	}
}

// ResendTicket sends the ticket of an existing booking again.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (e *Effects) ResendTicket(ctx context.Context, bookingID int64) error {
	const op = "notify.Effects.ResendTicket"

	src, err := e.tickets.TicketSource(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := e.deliver(ctx, src); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (e *Effects) sendTicket(ctx context.Context, b *domain.Booking) error {
	src, err := e.tickets.TicketSource(ctx, b.ID)
	if err != nil {
		// print what the booking itself knows rather than skip the email
		e.logger.Warn("ticket source unavailable, rendering from booking",
			"booking_id", b.ID, "err", err)
		src = &domain.TicketSource{Booking: *b}
	}

	return e.deliver(ctx, src)
}

// deliver sends the ticket email. When it fails a plain confirmation
// without attachments is tried so the parent still hears back; the ticket
// failure is returned either way.
func (e *Effects) deliver(ctx context.Context, src *domain.TicketSource) error {
	b := src.Booking

	v := render.ValidateTicket(*src)
	if !v.HasCompleteData {
		e.logger.Info("ticket rendered with defaults",
			"booking_ref", v.Data.BookingRef, "missing", v.MissingFields)
	}

	res := e.mailer.SendTicketEmail(ctx, TicketEmailData{To: b.Parent.Email, Ticket: v.Data})
	if res.Success {
		return nil
	}

	fallback := e.mailer.SendBookingConfirmation(ctx, BookingConfirmation{
		To:         b.Parent.Email,
		ParentName: v.Data.ParentName,
		BookingRef: v.Data.BookingRef,
		EventTitle: v.Data.EventTitle,
		EventDate:  v.Data.EventDate,
		VenueName:  v.Data.VenueName,
		Total:      v.Data.Total,
	})
	if fallback.Success {
		e.logger.Warn("ticket email failed, plain confirmation sent",
			"booking_ref", v.Data.BookingRef, "err", res.Err)
	}

	return fmt.Errorf("ticket email for %s: %w", v.Data.BookingRef, res.Err)
}
