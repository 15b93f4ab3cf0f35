package uow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	postgresrepo "github.com/u3m2a1/nibog-sub001/internal/repository/postgres"
)

type fakeTx struct {
	commitErr error
	// failFirst makes the first n commits fail with failErr.
	failFirst int
	failErr   error
	runs      int
}

func (f *fakeTx) RunTx(ctx context.Context, _ *pgx.TxOptions, fn func(ctx context.Context, tx postgresrepo.DB) error) error {
	f.runs++
	if err := fn(ctx, nil); err != nil {
		return err
	}
	if f.runs <= f.failFirst {
		return f.failErr
	}
	return f.commitErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDo(t *testing.T) {
	t.Run("Given committed tx When one hook fails Then siblings still run", func(t *testing.T) {
		u := NewUoW(&fakeTx{}, quietLogger())

		var ran atomic.Int32
		boom := errors.New("smtp down")

		report, err := u.Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(Hook)) error {
			after(Hook{Name: "email", Fn: func(context.Context) error { ran.Add(1); return boom }})
			after(Hook{Name: "publish", Fn: func(context.Context) error { ran.Add(1); return nil }})
			after(Hook{Name: "cleanup", Fn: func(context.Context) error { ran.Add(1); panic("bad") }})
			return nil
		})
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if ran.Load() != 3 {
			t.Fatalf("expected 3 hooks to run, got %d", ran.Load())
		}
		if len(report.Ran) != 3 || len(report.Failed) != 2 {
			t.Fatalf("unexpected report %+v", report)
		}
		if !errors.Is(report.Err(), boom) {
			t.Errorf("expected report error to wrap hook error, got %v", report.Err())
		}
	})

	t.Run("Given fn error When Do Then no hook runs", func(t *testing.T) {
		u := NewUoW(&fakeTx{}, quietLogger())

		var ran atomic.Int32
		report, err := u.Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(Hook)) error {
			after(Hook{Name: "email", Fn: func(context.Context) error { ran.Add(1); return nil }})
			return errors.New("insert failed")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if ran.Load() != 0 || len(report.Ran) != 0 {
			t.Errorf("hooks ran after failed tx")
		}
	})

	t.Run("Given commit error When Do Then no hook runs", func(t *testing.T) {
		u := NewUoW(&fakeTx{commitErr: errors.New("commit")}, quietLogger())

		var ran atomic.Int32
		_, err := u.Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(Hook)) error {
			after(Hook{Name: "email", Fn: func(context.Context) error { ran.Add(1); return nil }})
			return nil
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if ran.Load() != 0 {
			t.Errorf("hooks ran after failed commit")
		}
	})
}

func TestRunHooks_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := RunHooks(ctx, quietLogger(), []Hook{{
		Name: "email",
		Fn:   func(ctx context.Context) error { return ctx.Err() },
	}})
	if !report.OK() {
		t.Errorf("hook saw cancelled context: %v", report.Err())
	}
}

func TestDo_RetriesSerializationFailure(t *testing.T) {
	t.Run("Given serialization failure When Do Then the tx is retried and hooks run once", func(t *testing.T) {
		tx := &fakeTx{failFirst: 1, failErr: &pgconn.PgError{Code: "40001"}}
		u := NewUoW(tx, quietLogger())

		var ran atomic.Int32
		report, err := u.Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(Hook)) error {
			after(Hook{Name: "email", Fn: func(context.Context) error { ran.Add(1); return nil }})
			return nil
		})
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if tx.runs != 2 || ran.Load() != 1 || len(report.Ran) != 1 {
			t.Errorf("runs=%d hooks=%d report=%+v", tx.runs, ran.Load(), report)
		}
	})

	t.Run("Given unique violation When Do Then no retry", func(t *testing.T) {
		tx := &fakeTx{failFirst: 1, failErr: &pgconn.PgError{Code: "23505"}}
		u := NewUoW(tx, quietLogger())

		_, err := u.Do(context.Background(), func(context.Context, postgresrepo.DB, func(Hook)) error { return nil })
		if err == nil || tx.runs != 1 {
			t.Errorf("expected a single failed run, got runs=%d err=%v", tx.runs, err)
		}
	})
}
