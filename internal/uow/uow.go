package uow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	postgresrepo "github.com/u3m2a1/nibog-sub001/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

// Hook is a side effect that runs after a successful commit.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// HookError records one failed hook.
type HookError struct {
	Name string
	Err  error
}

func (e HookError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e HookError) Unwrap() error { return e.Err }

// Report lists the hooks that ran and the ones that failed.
type Report struct {
	Ran    []string
	Failed []HookError
}

func (r Report) OK() bool { return len(r.Failed) == 0 }

func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

type Transactor interface {
	RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context, tx postgresrepo.DB) error) error
}

// maxTxAttempts bounds retries of serialization failures and deadlocks.
const maxTxAttempts = 3

// UoW represents a unit of work.
type UoW struct {
	tx     Transactor
	logger *slog.Logger
}

func NewUoW(tx Transactor, logger *slog.Logger) *UoW {
	if logger == nil {
		logger = slog.Default()
	}
	return &UoW{tx: tx, logger: logger}
}

// Do runs fn inside a transaction. After a successful commit it runs every
// registered hook; hook failures are reported, never returned as the error.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(Hook)) error,
) (Report, error) {
	return u.DoWithOpts(ctx, nil, fn)
}

func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(Hook)) error,
) (Report, error) {
	var (
		hooks []Hook
		err   error
	)

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = u.tx.RunTx(ctx, opts, func(ctx context.Context, tx postgresrepo.DB) error {
			// hooks from a rolled back attempt must not run
			hooks = hooks[:0]
			return fn(ctx, tx, func(h Hook) {
				hooks = append(hooks, h)
			})
		})
		if err == nil || !postgresrepo.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		u.logger.Warn("retrying transaction", "attempt", attempt, "err", err)
	}
	if err != nil {
		return Report{}, err
	}

	return RunHooks(ctx, u.logger, hooks), nil
}

// RunHooks runs hooks concurrently, each in its own failure domain. A
// failing or panicking hook never cancels its siblings. Hooks keep running
// when ctx is cancelled since the commit they follow already happened.
func RunHooks(ctx context.Context, logger *slog.Logger, hooks []Hook) Report {
	if logger == nil {
		logger = slog.Default()
	}

	ctx = context.WithoutCancel(ctx)

	var (
		mu     sync.Mutex
		report Report
		g      errgroup.Group
	)

	for _, h := range hooks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}

				mu.Lock()
				defer mu.Unlock()

				report.Ran = append(report.Ran, h.Name)
				if err != nil {
					report.Failed = append(report.Failed, HookError{Name: h.Name, Err: err})
					logger.Error("post-commit effect failed", "effect", h.Name, "err", err)
				}
			}()

			return h.Fn(ctx)
		})
	}

	_ = g.Wait()

	return report
}
