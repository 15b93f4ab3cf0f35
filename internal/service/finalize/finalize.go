// Package finalize turns a successful payment into exactly one booking.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	redisx "github.com/u3m2a1/nibog-sub001/internal/redis"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
	postgresrepo "github.com/u3m2a1/nibog-sub001/internal/repository/postgres"
	"github.com/u3m2a1/nibog-sub001/internal/txid"
	"github.com/u3m2a1/nibog-sub001/internal/uow"
)

type Bookings interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Booking, error)
	Insert(ctx context.Context, tx postgresrepo.DB, b *domain.Booking) (*domain.Booking, error)
}

type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(uow.Hook)) error) (uow.Report, error)
}

type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// EffectsFunc returns the post-commit effects for a newly created booking.
type EffectsFunc func(b *domain.Booking) []uow.Hook

type Result struct {
	Booking *domain.Booking
	// Created is true only for the call that wrote the booking.
	Created bool
	Effects uow.Report
}

type Finalizer struct {
	bookings Bookings
	runner   Runner
	locker   Locker
	lockTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func New(bookings Bookings, runner Runner, locker Locker, lockTTL time.Duration, logger *slog.Logger) *Finalizer {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{
		bookings: bookings,
		runner:   runner,
		locker:   locker,
		lockTTL:  lockTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Finalize creates the booking for a successful payment, or returns the one
// that already exists for the transaction. Effects run only when this call
// created the booking.
//
// Returns:
//   - error: ErrNotPaid if the outcome is not SUCCESS.
//   - error: *UnrecoverableError if no booking id can be recovered.
//   - error: *BookingWriteError if the booking could not be written or the
//     paid amount differs from the intent total.
//   - error: ErrInProgress if another finalizer holds the lock.
func (f *Finalizer) Finalize(
	ctx context.Context,
	outcome domain.PaymentOutcome,
	intent *domain.TransactionIntent,
	effects EffectsFunc,
) (Result, error) {
	const op = "finalize.Finalizer.Finalize"

	if outcome.Status != domain.PaymentSuccess {
		return Result{}, fmt.Errorf("%s: %w: %s", op, ErrNotPaid, outcome.Status)
	}

	transactionID := outcome.TransactionID

	existing, err := f.existing(ctx, transactionID)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return Result{Booking: existing}, nil
	}

	id, err := txid.Parse(transactionID)
	if err != nil {
		f.logger.Error("paid transaction has no recoverable booking id",
			"transaction_id", transactionID, "err", err)
		return Result{}, &UnrecoverableError{TransactionID: transactionID, Err: err}
	}

	if intent == nil {
		return Result{}, &BookingWriteError{TransactionID: transactionID, Err: ErrNoIntent}
	}

	// gateways that omit the amount report zero
	if outcome.AmountPaise > 0 && outcome.AmountPaise != intent.TotalPaise {
		f.logger.Error("paid amount differs from booking total",
			"transaction_id", transactionID,
			"amount_paise", outcome.AmountPaise,
			"total_paise", intent.TotalPaise,
		)
		return Result{}, &BookingWriteError{
			TransactionID: transactionID,
			Err:           fmt.Errorf("%w: paid %d, expected %d", ErrAmountMismatch, outcome.AmountPaise, intent.TotalPaise),
		}
	}

	key := redisx.KeyIdemFinalize(transactionID)
	token, ok, err := f.locker.AcquireLock(ctx, key, f.lockTTL)
	if err != nil {
		return Result{}, &BookingWriteError{TransactionID: transactionID, Err: err}
	}
	if !ok {
		// the other holder may have finished between our read and the lock
		if existing, err := f.existing(ctx, transactionID); err != nil || existing != nil {
			return Result{Booking: existing}, err
		}
		return Result{}, fmt.Errorf("%s: %w", op, ErrInProgress)
	}
	defer func() {
		if err := f.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			f.logger.Warn("release finalize lock", "transaction_id", transactionID, "err", err)
		}
	}()

	booking := f.bookingFrom(id.BookingID, outcome, intent)

	var created *domain.Booking
	report, err := f.runner.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.Hook)) error {
		b, err := f.bookings.Insert(ctx, tx, booking)
		if err != nil {
			return err
		}
		created = b

		if effects != nil {
			for _, h := range effects(b) {
				after(h)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// the webhook or a concurrent callback won the insert
			existing, getErr := f.existing(ctx, transactionID)
			if getErr != nil {
				return Result{}, getErr
			}
			if existing != nil {
				return Result{Booking: existing}, nil
			}
		}
		f.logger.Error("booking write failed after successful payment",
			"transaction_id", transactionID, "booking_id", id.BookingID, "err", err)
		return Result{}, &BookingWriteError{TransactionID: transactionID, Err: err}
	}

	f.logger.Info("booking created",
		"transaction_id", transactionID,
		"booking_id", created.ID,
		"booking_ref", created.Ref,
		"effects_failed", len(report.Failed),
	)

	return Result{Booking: created, Created: true, Effects: report}, nil
}

func (f *Finalizer) existing(ctx context.Context, transactionID string) (*domain.Booking, error) {
	b, err := f.bookings.GetByTransactionID(ctx, transactionID)
	if err == nil {
		return b, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return nil, &BookingWriteError{TransactionID: transactionID, Err: err}
}

func (f *Finalizer) bookingFrom(bookingID int64, outcome domain.PaymentOutcome, intent *domain.TransactionIntent) *domain.Booking {
	now := f.now().UTC()
	return &domain.Booking{
		ID:            bookingID,
		Ref:           domain.BookingRef(bookingID),
		TransactionID: outcome.TransactionID,
		UserID:        intent.UserID,
		EventID:       intent.EventID,
		Status:        domain.BookingConfirmed,
		TotalPaise:    intent.TotalPaise,
		PaymentStatus: domain.BookingPaymentPaid,
		PaymentMethod: outcome.Method,
		ProviderRef:   outcome.ProviderRef,
		Parent:        intent.Parent,
		Child:         intent.Child,
		Games:         intent.Games,
		AddOns:        intent.AddOns,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// PostgresBookings adapts BookingRepo to the transaction-scoped Insert the
// finalizer needs.
type PostgresBookings struct {
	Repo *postgresrepo.BookingRepo
}

func (p PostgresBookings) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Booking, error) {
	return p.Repo.GetByTransactionID(ctx, transactionID)
}

func (p PostgresBookings) Insert(ctx context.Context, tx postgresrepo.DB, b *domain.Booking) (*domain.Booking, error) {
	return p.Repo.With(tx).Insert(ctx, b)
}
