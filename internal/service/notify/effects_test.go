package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
	"github.com/u3m2a1/nibog-sub001/internal/uow"
)

func TestEffects(t *testing.T) {
	booking := &domain.Booking{
		ID:            482,
		Ref:           "B0000482",
		TransactionID: "NIBOG_482_xyz",
		Parent:        domain.Parent{Name: "Asha", Email: "asha@example.com"},
		TotalPaise:    180000,
	}

	t.Run("Given booking When effects run Then ticket email encodes the booking ref and event is published", func(t *testing.T) {
		m := &fakeMailer{}
		pub := &fakePublisher{}
		e := NewEffects(
			fakeTickets{src: &domain.TicketSource{Booking: *booking}},
			NewDispatcher(m, EmailSettings{}, quietLogger()),
			pub,
			quietLogger(),
		)

		report := uow.RunHooks(context.Background(), quietLogger(), e.For(booking))
		if !report.OK() {
			t.Fatalf("effects failed: %v", report.Err())
		}
		if len(m.sent) != 1 || m.sent[0].To != "asha@example.com" || m.sent[0].TicketDetails.QRPayload != "B0000482" {
			t.Errorf("unexpected email %+v", m.sent)
		}
		if len(pub.got) != 1 || pub.got[0].BookingRef != "B0000482" {
			t.Errorf("unexpected events %+v", pub.got)
		}
	})

	t.Run("Given email failure When effects run Then event is still published", func(t *testing.T) {
		pub := &fakePublisher{}
		e := NewEffects(
			fakeTickets{err: errors.New("db down")},
			NewDispatcher(&fakeMailer{err: errors.New("smtp down")}, EmailSettings{}, quietLogger()),
			pub,
			quietLogger(),
		)

		report := uow.RunHooks(context.Background(), quietLogger(), e.For(booking))
		if len(report.Failed) != 1 || report.Failed[0].Name != "ticket-email" {
			t.Fatalf("unexpected report %+v", report)
		}
		if len(pub.got) != 1 {
			t.Errorf("event not published after email failure")
		}
	})

	t.Run("Given attachments rejected When effects run Then plain confirmation goes out and ticket email is reported", func(t *testing.T) {
		m := &fakeMailer{rejectAttachments: true}
		e := NewEffects(
			fakeTickets{src: &domain.TicketSource{Booking: *booking}},
			NewDispatcher(m, EmailSettings{}, quietLogger()),
			&fakePublisher{},
			quietLogger(),
		)

		report := uow.RunHooks(context.Background(), quietLogger(), e.For(booking))
		if len(report.Failed) != 1 || report.Failed[0].Name != "ticket-email" {
			t.Fatalf("unexpected report %+v", report)
		}
		if len(m.sent) != 1 || m.sent[0].Subject != "Booking confirmed: B0000482" || len(m.sent[0].Attachments) != 0 {
			t.Errorf("expected plain confirmation, got %+v", m.sent)
		}
	})
}

func TestResendTicket(t *testing.T) {
	booking := domain.Booking{
		ID:         482,
		Ref:        "B0000482",
		Parent:     domain.Parent{Name: "Asha", Email: "asha@example.com"},
		TotalPaise: 180000,
	}

	t.Run("Given existing booking When resending Then ticket email is sent", func(t *testing.T) {
		m := &fakeMailer{}
		e := NewEffects(fakeTickets{src: &domain.TicketSource{Booking: booking}},
			NewDispatcher(m, EmailSettings{}, quietLogger()), &fakePublisher{}, quietLogger())

		if err := e.ResendTicket(context.Background(), 482); err != nil {
			t.Fatalf("ResendTicket failed: %v", err)
		}
		if len(m.sent) != 1 || m.sent[0].BookingRef != "B0000482" {
			t.Errorf("unexpected email %+v", m.sent)
		}
	})

	t.Run("Given unknown booking When resending Then not found is returned", func(t *testing.T) {
		e := NewEffects(fakeTickets{err: repository.ErrNotFound},
			NewDispatcher(&fakeMailer{}, EmailSettings{}, quietLogger()), &fakePublisher{}, quietLogger())

		if err := e.ResendTicket(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
