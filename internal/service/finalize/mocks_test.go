package finalize

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
	postgresrepo "github.com/u3m2a1/nibog-sub001/internal/repository/postgres"
	"github.com/u3m2a1/nibog-sub001/internal/uow"
)

type memBookings struct {
	mu        sync.Mutex
	byTx      map[string]*domain.Booking
	inserts   int
	insertErr error
	// beforeInsert runs inside Insert, letting a test slip in a competing writer.
	beforeInsert func(m *memBookings)
}

func newMemBookings() *memBookings {
	return &memBookings{byTx: map[string]*domain.Booking{}}
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
	if m.beforeInsert != nil {
		m.beforeInsert(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if _, ok := m.byTx[b.TransactionID]; ok {
		return nil, repository.ErrConflict
	}
	m.inserts++
	cp := *b
	m.byTx[b.TransactionID] = &cp
	return &cp, nil
}

func (m *memBookings) put(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTx[b.TransactionID] = b
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

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]string{}}
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

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
