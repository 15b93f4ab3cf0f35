package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/gateway"
)

type scriptedChecker struct {
	steps []step
	calls int
}

type step struct {
	status domain.PaymentStatus
	err    error
}

func (s *scriptedChecker) CheckStatus(_ context.Context, txid string) (domain.PaymentOutcome, error) {
	i := s.calls
	s.calls++
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	if s.steps[i].err != nil {
		return domain.PaymentOutcome{}, s.steps[i].err
	}
	return domain.PaymentOutcome{TransactionID: txid, Status: s.steps[i].status}, nil
}

type recordingWaiter struct {
	waits []time.Duration
}

func (w *recordingWaiter) wait(_ context.Context, d time.Duration) error {
	w.waits = append(w.waits, d)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPoller(c StatusChecker, w *recordingWaiter) *Poller {
	return New(c, DefaultPolicy(), quietLogger(), WithWaiter(w.wait))
}

func TestPoll(t *testing.T) {
	t.Run("Given SUCCESS on 2nd poll When Poll Then success after one wait", func(t *testing.T) {
		c := &scriptedChecker{steps: []step{{status: domain.PaymentPending}, {status: domain.PaymentSuccess}}}
		w := &recordingWaiter{}

		res, err := newPoller(c, w).Poll(context.Background(), "NIBOG_482_xyz")
		if err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		if res.State != StateSuccess || res.Attempts != 2 {
			t.Fatalf("unexpected result %+v", res)
		}
		if len(w.waits) != 1 || w.waits[0] != 5*time.Second {
			t.Errorf("unexpected waits %v", w.waits)
		}
	})

	t.Run("Given FAILED on 1st poll When Poll Then stops without waiting", func(t *testing.T) {
		c := &scriptedChecker{steps: []step{{status: domain.PaymentFailed}}}
		w := &recordingWaiter{}

		res, err := newPoller(c, w).Poll(context.Background(), "NIBOG_1_a")
		if err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		if res.State != StateFailed || c.calls != 1 || len(w.waits) != 0 {
			t.Fatalf("unexpected result %+v calls=%d waits=%v", res, c.calls, w.waits)
		}
	})

	t.Run("Given CANCELLED When Poll Then state is cancelled", func(t *testing.T) {
		c := &scriptedChecker{steps: []step{{status: domain.PaymentCancelled}}}

		res, err := newPoller(c, &recordingWaiter{}).Poll(context.Background(), "NIBOG_1_a")
		if err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		if res.State != StateCancelled {
			t.Fatalf("expected cancelled, got %s", res.State)
		}
	})

	t.Run("Given always PENDING When Poll Then six checks five waits and no error", func(t *testing.T) {
		c := &scriptedChecker{steps: []step{{status: domain.PaymentPending}}}
		w := &recordingWaiter{}

		res, err := newPoller(c, w).Poll(context.Background(), "NIBOG_1_a")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.State != StateStillPending {
			t.Fatalf("expected still pending, got %s", res.State)
		}
		if c.calls != 6 {
			t.Errorf("expected 6 checks, got %d", c.calls)
		}
		if len(w.waits) != 5 {
			t.Fatalf("expected 5 waits, got %d", len(w.waits))
		}
		for _, d := range w.waits {
			if d < 5*time.Second {
				t.Errorf("wait %s shorter than 5s", d)
			}
		}
	})

	t.Run("Given transient errors When Poll Then each consumes an attempt", func(t *testing.T) {
		transient := fmt.Errorf("%w: status 503", gateway.ErrTransient)
		c := &scriptedChecker{steps: []step{{err: transient}, {err: transient}, {status: domain.PaymentSuccess}}}
		w := &recordingWaiter{}

		res, err := newPoller(c, w).Poll(context.Background(), "NIBOG_1_a")
		if err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		if res.State != StateSuccess || res.Attempts != 3 {
			t.Fatalf("unexpected result %+v", res)
		}
		if !errors.Is(res.LastErr, gateway.ErrTransient) {
			t.Errorf("expected last transient error to be kept, got %v", res.LastErr)
		}
	})

	t.Run("Given only transient errors When Poll Then still pending", func(t *testing.T) {
		c := &scriptedChecker{steps: []step{{err: gateway.ErrTransient}}}

		res, err := newPoller(c, &recordingWaiter{}).Poll(context.Background(), "NIBOG_1_a")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.State != StateStillPending || c.calls != 6 {
			t.Fatalf("unexpected result %+v calls=%d", res, c.calls)
		}
		if res.Outcome.Status != domain.PaymentPending {
			t.Errorf("expected pending outcome, got %s", res.Outcome.Status)
		}
	})

	t.Run("Given definitive gateway error When Poll Then error is returned", func(t *testing.T) {
		c := &scriptedChecker{steps: []step{{err: gateway.ErrGateway}}}

		_, err := newPoller(c, &recordingWaiter{}).Poll(context.Background(), "NIBOG_1_a")
		if !errors.Is(err, gateway.ErrGateway) {
			t.Fatalf("expected ErrGateway, got %v", err)
		}
		if c.calls != 1 {
			t.Errorf("expected 1 check, got %d", c.calls)
		}
	})
}

func TestPoll_Cancel(t *testing.T) {
	c := &scriptedChecker{steps: []step{{status: domain.PaymentPending}}}
	p := New(c, Policy{MaxAttempts: 6, Backoff: Fixed(time.Hour)}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := p.Poll(ctx, "NIBOG_1_a")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("cancel did not interrupt the wait")
	}
	if c.calls != 1 {
		t.Errorf("expected 1 check before cancel, got %d", c.calls)
	}
}

func TestState_String(t *testing.T) {
	if StateStillPending.String() != "still_pending" || StateSuccess.String() != "success" {
		t.Error("unexpected state names")
	}
}
