// Package reconcile polls the payment gateway until a transaction reaches a
// terminal status or the attempt budget runs out.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/gateway"
)

type StatusChecker interface {
	CheckStatus(ctx context.Context, transactionID string) (domain.PaymentOutcome, error)
}

type State int

const (
	StateInit State = iota
	StatePolling
	StateSuccess
	StateFailed
	StateCancelled
	StateStillPending
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePolling:
		return "polling"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	case StateStillPending:
		return "still_pending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateFor maps a gateway status onto the state a poll ends in.
func StateFor(status domain.PaymentStatus) State {
	switch status {
	case domain.PaymentSuccess:
		return StateSuccess
	case domain.PaymentFailed:
		return StateFailed
	case domain.PaymentCancelled:
		return StateCancelled
	default:
		return StatePolling
	}
}

type Policy struct {
	MaxAttempts int
	// Backoff returns the wait before attempt n+1, given n completed attempts.
	Backoff  func(attempt int) time.Duration
	Terminal func(status domain.PaymentStatus) bool
}

func Fixed(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// DefaultPolicy is six checks five seconds apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 6,
		Backoff:     Fixed(5 * time.Second),
		Terminal:    domain.PaymentStatus.Terminal,
	}
}

// Result is where a Poll call ended up. StillPending is a normal result,
// not an error: the caller offers a manual re-check.
type Result struct {
	State    State
	Outcome  domain.PaymentOutcome
	Attempts int
	// LastErr is the last transient error seen, if any.
	LastErr error
}

// Waiter blocks for d or until ctx is done.
type Waiter func(ctx context.Context, d time.Duration) error

func timerWait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Option func(*Poller)

func WithWaiter(w Waiter) Option {
	return func(p *Poller) { p.wait = w }
}

type Poller struct {
	checker StatusChecker
	policy  Policy
	wait    Waiter
	logger  *slog.Logger
}

func New(checker StatusChecker, policy Policy, logger *slog.Logger, opts ...Option) *Poller {
	def := DefaultPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.Backoff == nil {
		policy.Backoff = def.Backoff
	}
	if policy.Terminal == nil {
		policy.Terminal = def.Terminal
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Poller{
		checker: checker,
		policy:  policy,
		wait:    timerWait,
		logger:  logger,
	}
	for _, o := range opts {
		o(p)
	}

	return p
}

// Poll checks the gateway at most MaxAttempts times, one check at a time.
// Transient gateway errors use up an attempt. A definitive gateway error
// stops polling and is returned. Cancelling ctx stops the wait at once and
// returns ctx.Err().
func (p *Poller) Poll(ctx context.Context, transactionID string) (Result, error) {
	const op = "reconcile.Poller.Poll"

	res := Result{State: StateInit}

	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.wait(ctx, p.policy.Backoff(attempt-1)); err != nil {
				return res, err
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.State = StatePolling
		res.Attempts = attempt

		out, err := p.checker.CheckStatus(ctx, transactionID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			if errors.Is(err, gateway.ErrTransient) {
				p.logger.Warn("payment status check failed",
					"transaction_id", transactionID,
					"attempt", attempt,
					"max_attempts", p.policy.MaxAttempts,
					"err", err,
				)
				res.LastErr = err
				continue
			}
			return res, fmt.Errorf("%s: %w", op, err)
		}

		p.logger.Info("payment status checked",
			"transaction_id", transactionID,
			"attempt", attempt,
			"max_attempts", p.policy.MaxAttempts,
			"status", out.Status,
		)

		res.Outcome = out
		if p.policy.Terminal(out.Status) {
			res.State = StateFor(out.Status)
			return res, nil
		}
	}

	res.State = StateStillPending
	if res.Outcome.TransactionID == "" {
		res.Outcome = domain.PaymentOutcome{TransactionID: transactionID, Status: domain.PaymentPending}
	}

	return res, nil
}
