package payment

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/events"
	"github.com/u3m2a1/nibog-sub001/internal/gateway"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
	postgresrepo "github.com/u3m2a1/nibog-sub001/internal/repository/postgres"
	redisrepo "github.com/u3m2a1/nibog-sub001/internal/repository/redis"
	"github.com/u3m2a1/nibog-sub001/internal/service/finalize"
	"github.com/u3m2a1/nibog-sub001/internal/service/notify"
	"github.com/u3m2a1/nibog-sub001/internal/service/reconcile"
	"github.com/u3m2a1/nibog-sub001/internal/uow"
)

type fakeGateway struct {
	mu        sync.Mutex
	statuses  []domain.PaymentStatus
	checks    int
	redirects []string
	webhook   domain.PaymentOutcome
}

func (g *fakeGateway) CreatePaymentRedirect(_ context.Context, transactionID, _ string, _ int64, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.redirects = append(g.redirects, transactionID)
	return "https://pay.example/" + transactionID, nil
}

func (g *fakeGateway) CheckStatus(_ context.Context, transactionID string) (domain.PaymentOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := min(g.checks, len(g.statuses)-1)
	g.checks++
	return domain.PaymentOutcome{
		TransactionID: transactionID,
		Status:        g.statuses[i],
		ProviderRef:   "T2304",
		Method:        "UPI",
	}, nil
}

func (g *fakeGateway) VerifyCallback(_ []byte, xVerify string) (domain.PaymentOutcome, error) {
	if xVerify != "good" {
		return domain.PaymentOutcome{}, gateway.ErrChecksum
	}
	return g.webhook, nil
}

type memIntents struct {
	mu sync.Mutex
	m  map[string]domain.TransactionIntent
}

func newMemIntents() *memIntents {
	return &memIntents{m: map[string]domain.TransactionIntent{}}
}

func (s *memIntents) Save(_ context.Context, intent *domain.TransactionIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[intent.TransactionID]; ok {
		return repository.ErrConflict
	}
	s.m[intent.TransactionID] = *intent
	return nil
}

func (s *memIntents) Get(_ context.Context, transactionID string) (*domain.TransactionIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.m[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &intent, nil
}

func (s *memIntents) Delete(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, transactionID)
	return nil
}

func (s *memIntents) has(transactionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[transactionID]
	return ok
}

type memBookings struct {
	mu      sync.Mutex
	nextID  int64
	byTx    map[string]*domain.Booking
	inserts int
}

func newMemBookings(nextID int64) *memBookings {
	return &memBookings{nextID: nextID, byTx: map[string]*domain.Booking{}}
}

func (m *memBookings) NextID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id, nil
}

func (m *memBookings) Get(_ context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byTx {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memBookings) GetByTransactionID(_ context.Context, transactionID string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byTx[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) Insert(_ context.Context, _ postgresrepo.DB, b *domain.Booking) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byTx[b.TransactionID]; ok {
		return nil, repository.ErrConflict
	}
	m.inserts++
	cp := *b
	m.byTx[b.TransactionID] = &cp
	return &cp, nil
}

func (m *memBookings) TicketSource(_ context.Context, bookingID int64) (*domain.TicketSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byTx {
		if b.ID == bookingID {
			return &domain.TicketSource{
				Booking: *b,
				Event:   domain.EventInfo{ID: b.EventID, Title: "NIBOG Hyderabad", VenueName: "Gachibowli Stadium"},
			}, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeRunner struct{}

func (fakeRunner) Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(uow.Hook)) error) (uow.Report, error) {
	var hooks []uow.Hook
	if err := fn(ctx, nil, func(h uow.Hook) { hooks = append(hooks, h) }); err != nil {
		return uow.Report{}, err
	}
	return uow.RunHooks(ctx, quietLogger(), hooks), nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	seq  int
}

func (l *memLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.seq++
	token := strconv.Itoa(l.seq)
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.EmailRequest
}

func (m *fakeMailer) Send(_ context.Context, msg notify.EmailRequest) (notify.EmailResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return notify.EmailResponse{Success: true, MessageID: "msg-" + strconv.Itoa(len(m.sent))}, nil
}

type fakeLimiter struct {
	allow bool
}

func (l fakeLimiter) Allow(context.Context, string) (redisrepo.Decision, error) {
	if l.allow {
		return redisrepo.Decision{Allowed: true, Count: 1}, nil
	}
	return redisrepo.Decision{Allowed: false, Count: 11, RetryAfter: 30 * time.Second}, nil
}

type harness struct {
	gw       *fakeGateway
	intents  *memIntents
	bookings *memBookings
	mailer   *fakeMailer
	waits    []time.Duration
	svc      *Service
}

func newHarness(statuses ...domain.PaymentStatus) *harness {
	h := &harness{
		gw:       &fakeGateway{statuses: statuses},
		intents:  newMemIntents(),
		bookings: newMemBookings(482),
		mailer:   &fakeMailer{},
	}

	logger := quietLogger()

	poller := reconcile.New(h.gw, reconcile.DefaultPolicy(), logger,
		reconcile.WithWaiter(func(_ context.Context, d time.Duration) error {
			h.waits = append(h.waits, d)
			return nil
		}),
	)
	finalizer := finalize.New(h.bookings, fakeRunner{}, &memLocker{held: map[string]string{}}, time.Second, logger)
	effects := notify.NewEffects(
		h.bookings,
		notify.NewDispatcher(h.mailer, notify.EmailSettings{FromName: "NIBOG"}, logger),
		events.Noop{},
		logger,
	)

	h.svc = New(Deps{
		Gateway:   h.gw,
		Intents:   h.intents,
		Bookings:  h.bookings,
		Poller:    poller,
		Finalizer: finalizer,
		Effects:   effects.For,
	}, Config{}, logger)

	return h
}

func validIntent() domain.TransactionIntent {
	return domain.TransactionIntent{
		UserID:     "u-1",
		Parent:     domain.Parent{Name: "Asha", Email: "asha@example.com", Phone: "9876543210"},
		Child:      domain.Child{Name: "Kiran", DOB: "2022-03-01", Gender: "female"},
		EventID:    7,
		Games:      []domain.GameSelection{{GameID: 3, PricePaise: 180000}},
		TotalPaise: 180000,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
