package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/events"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []EmailRequest
	err  error
	// rejectAttachments fails only messages that carry attachments.
	rejectAttachments bool
}

func (m *fakeMailer) Send(_ context.Context, msg EmailRequest) (EmailResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return EmailResponse{}, m.err
	}
	if m.rejectAttachments && len(msg.Attachments) > 0 {
		return EmailResponse{}, ErrEmailRejected
	}
	m.sent = append(m.sent, msg)
	return EmailResponse{Success: true, MessageID: "msg-1"}, nil
}

type fakeCertStore struct {
	tpl     *domain.CertificateTemplate
	created []*domain.GeneratedCertificate
	// failFor makes Create fail for these user ids.
	failFor map[string]bool
	// conflicts makes the next n Create calls report a number collision.
	conflicts int
	nextID    int64
}

func (s *fakeCertStore) Template(_ context.Context, id int64) (*domain.CertificateTemplate, error) {
	if s.tpl == nil || s.tpl.ID != id {
		return nil, repository.ErrNotFound
	}
	return s.tpl, nil
}

func (s *fakeCertStore) Get(_ context.Context, id int64) (*domain.GeneratedCertificate, error) {
	for _, c := range s.created {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeCertStore) Create(_ context.Context, c *domain.GeneratedCertificate) (*domain.GeneratedCertificate, error) {
	if s.conflicts > 0 {
		s.conflicts--
		return nil, repository.ErrConflict
	}
	if s.failFor[c.UserID] {
		return nil, errors.New("insert failed")
	}
	s.nextID++
	out := *c
	out.ID = s.nextID
	s.created = append(s.created, &out)
	return &out, nil
}

type fakeTickets struct {
	src *domain.TicketSource
	err error
}

func (f fakeTickets) TicketSource(_ context.Context, _ int64) (*domain.TicketSource, error) {
	return f.src, f.err
}

type fakePublisher struct {
	mu  sync.Mutex
	got []events.BookingConfirmed
	err error
}

func (p *fakePublisher) PublishBookingConfirmed(_ context.Context, ev events.BookingConfirmed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, ev)
	return p.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
