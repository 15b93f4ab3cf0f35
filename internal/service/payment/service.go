// Package payment drives a checkout from intent to booking: it stages the
// intent, sends the parent to the gateway and resolves the payment when
// the gateway comes back through the callback, the webhook or a manual
// re-check.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/u3m2a1/nibog-sub001/internal/domain"
	redisx "github.com/u3m2a1/nibog-sub001/internal/redis"
	"github.com/u3m2a1/nibog-sub001/internal/render"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
	redisrepo "github.com/u3m2a1/nibog-sub001/internal/repository/redis"
	"github.com/u3m2a1/nibog-sub001/internal/service/finalize"
	"github.com/u3m2a1/nibog-sub001/internal/service/reconcile"
	"github.com/u3m2a1/nibog-sub001/internal/txid"
)

type Gateway interface {
	CreatePaymentRedirect(ctx context.Context, transactionID, userID string, amountPaise int64, mobile string) (string, error)
	CheckStatus(ctx context.Context, transactionID string) (domain.PaymentOutcome, error)
	VerifyCallback(body []byte, xVerify string) (domain.PaymentOutcome, error)
}

type Intents interface {
	Save(ctx context.Context, intent *domain.TransactionIntent) error
	Get(ctx context.Context, transactionID string) (*domain.TransactionIntent, error)
	Delete(ctx context.Context, transactionID string) error
}

type Bookings interface {
	NextID(ctx context.Context) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Booking, error)
	TicketSource(ctx context.Context, bookingID int64) (*domain.TicketSource, error)
}

type Poller interface {
	Poll(ctx context.Context, transactionID string) (reconcile.Result, error)
}

type Finalizer interface {
	Finalize(ctx context.Context, outcome domain.PaymentOutcome, intent *domain.TransactionIntent, effects finalize.EffectsFunc) (finalize.Result, error)
}

type Limiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

type Config struct {
	TicketCacheTTL time.Duration
}

// Deps are the collaborators of Service. Limiter, Cache and Effects may be
// nil.
type Deps struct {
	Gateway   Gateway
	Intents   Intents
	Bookings  Bookings
	Poller    Poller
	Finalizer Finalizer
	Limiter   Limiter
	Cache     *redisrepo.Cache
	Effects   finalize.EffectsFunc
}

type Service struct {
	deps     Deps
	cfg      Config
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func New(deps Deps, cfg Config, logger *slog.Logger) *Service {
	if cfg.TicketCacheTTL <= 0 {
		cfg.TicketCacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deps:     deps,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
	}
}

type InitiateResult struct {
	TransactionID string `json:"transaction_id"`
	BookingID     int64  `json:"booking_id"`
	RedirectURL   string `json:"redirect_url"`
}

// Outcome is where a payment resolution ended up. Booking is set only for
// StateSuccess.
type Outcome struct {
	TransactionID string               `json:"transaction_id"`
	State         reconcile.State      `json:"-"`
	Status        domain.PaymentStatus `json:"status"`
	Attempts      int                  `json:"attempts,omitempty"`
	Booking       *domain.Booking      `json:"booking,omitempty"`
	Created       bool                 `json:"created"`
	EffectsFailed []string             `json:"effects_failed,omitempty"`
}

// Initiate stages intent and registers the payment with the gateway.
// A booking id is reserved and the transaction id derived from it; any
// transaction id already set on intent is replaced.
//
// Parameters:
//   - ctx: request-scoped context.
//   - intent: the booking the parent is paying for.
//   - rlKey: rate limit identity, usually the client IP. Empty disables limiting.
//
// Returns:
//   - InitiateResult: the transaction id and the gateway pay page.
//   - error: *RateLimitError when the caller is over the limit.
//   - error: ErrInvalidIntent when the intent fails validation.
//   - error: repository.ErrConflict if an intent is already staged under the
//     new transaction id.
func (s *Service) Initiate(ctx context.Context, intent domain.TransactionIntent, rlKey string) (InitiateResult, error) {
	const op = "payment.Service.Initiate"

	if s.deps.Limiter != nil && rlKey != "" {
		d, err := s.deps.Limiter.Allow(ctx, rlKey)
		if err != nil {
			return InitiateResult{}, fmt.Errorf("%s: %w", op, err)
		}
		if !d.Allowed {
			return InitiateResult{}, &RateLimitError{RetryAfter: d.RetryAfter}
		}
	}

	if err := s.validate.StructCtx(ctx, intent); err != nil {
		return InitiateResult{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidIntent, err)
	}

	bookingID, err := s.deps.Bookings.NextID(ctx)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	id := txid.New(bookingID)

	intent.TransactionID = id.Raw
	intent.CreatedAt = s.now().UTC()

	if err := s.deps.Intents.Save(ctx, &intent); err != nil {
		return InitiateResult{}, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.deps.Gateway.CreatePaymentRedirect(ctx, id.Raw, intent.UserID, intent.TotalPaise, intent.Parent.Phone)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("checkout initiated",
		"transaction_id", id.Raw,
		"booking_id", id.BookingID,
		"event_id", intent.EventID,
		"total_paise", intent.TotalPaise,
	)

	return InitiateResult{TransactionID: id.Raw, BookingID: id.BookingID, RedirectURL: url}, nil
}

// HandleCallback resolves the payment the gateway redirected back for. It
// polls until the status is terminal or the budget is spent. Only SUCCESS
// creates a booking; FAILED and CANCELLED come back untouched and a
// payment still in flight comes back as StateStillPending.
//
// Returns:
//   - error: ErrMissingParams if either parameter is empty. The gateway is
//     not called.
//   - error: finalize errors after a SUCCESS that could not be booked.
func (s *Service) HandleCallback(ctx context.Context, transactionID, tempID string) (Outcome, error) {
	const op = "payment.Service.HandleCallback"

	if transactionID == "" || tempID == "" {
		return Outcome{}, fmt.Errorf("%s: %w", op, ErrMissingParams)
	}

	if id, err := txid.Parse(transactionID); err == nil && strconv.FormatInt(id.BookingID, 10) != tempID {
		s.logger.Warn("callback booking id does not match transaction",
			"transaction_id", transactionID, "booking_id", tempID)
	}

	res, err := s.deps.Poller.Poll(ctx, transactionID)
	if err != nil {
		return Outcome{TransactionID: transactionID, State: res.State, Attempts: res.Attempts},
			fmt.Errorf("%s: %w", op, err)
	}

	out := Outcome{
		TransactionID: transactionID,
		State:         res.State,
		Status:        res.Outcome.Status,
		Attempts:      res.Attempts,
	}
	if res.State != reconcile.StateSuccess {
		s.logger.Info("payment not successful",
			"transaction_id", transactionID, "state", res.State.String(), "attempts", res.Attempts)
		if out.Status == "" {
			out.Status = domain.PaymentPending
		}
		return out, nil
	}

	return s.confirm(ctx, out, res.Outcome)
}

// Recheck asks the gateway once, for a parent who gave up waiting.
func (s *Service) Recheck(ctx context.Context, transactionID string) (Outcome, error) {
	const op = "payment.Service.Recheck"

	if transactionID == "" {
		return Outcome{}, fmt.Errorf("%s: %w", op, ErrMissingParams)
	}

	po, err := s.deps.Gateway.CheckStatus(ctx, transactionID)
	if err != nil {
		return Outcome{TransactionID: transactionID}, fmt.Errorf("%s: %w", op, err)
	}

	out := Outcome{
		TransactionID: transactionID,
		State:         reconcile.StateFor(po.Status),
		Status:        po.Status,
		Attempts:      1,
	}
	switch out.State {
	case reconcile.StateSuccess:
		return s.confirm(ctx, out, po)
	case reconcile.StatePolling:
		out.State = reconcile.StateStillPending
	}

	return out, nil
}

// HandleWebhook is the gateway's server-to-server notification and the
// authoritative booking writer. The callback path confirms the same
// booking idempotently.
//
// Returns:
//   - error: gateway.ErrChecksum if the notification is not signed by the gateway.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, xVerify string) (Outcome, error) {
	const op = "payment.Service.HandleWebhook"

	po, err := s.deps.Gateway.VerifyCallback(body, xVerify)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	out := Outcome{
		TransactionID: po.TransactionID,
		State:         reconcile.StateFor(po.Status),
		Status:        po.Status,
	}
	if out.State != reconcile.StateSuccess {
		s.logger.Info("webhook without success",
			"transaction_id", po.TransactionID, "status", po.Status)
		return out, nil
	}

	return s.confirm(ctx, out, po)
}

// confirm books a successful payment and clears the staged intent.
func (s *Service) confirm(ctx context.Context, out Outcome, po domain.PaymentOutcome) (Outcome, error) {
	const op = "payment.Service.confirm"

	intent, err := s.deps.Intents.Get(ctx, po.TransactionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("load staged intent", "transaction_id", po.TransactionID, "err", err)
		}
		intent = nil
	}

	res, err := s.deps.Finalizer.Finalize(ctx, po, intent, s.deps.Effects)
	if err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}

	out.Booking = res.Booking
	out.Created = res.Created
	for _, f := range res.Effects.Failed {
		out.EffectsFailed = append(out.EffectsFailed, f.Name)
	}

	if err := s.deps.Intents.Delete(context.WithoutCancel(ctx), po.TransactionID); err != nil {
		s.logger.Warn("delete staged intent", "transaction_id", po.TransactionID, "err", err)
	}

	return out, nil
}

// Booking returns a confirmed booking.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (s *Service) Booking(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "payment.Service.Booking"

	b, err := s.deps.Bookings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

type TicketDocument struct {
	BookingRef string
	Filename   string
	PDF        []byte
}

// TicketPDF renders the ticket of a booking on demand.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (s *Service) TicketPDF(ctx context.Context, bookingID int64) (TicketDocument, error) {
	const op = "payment.Service.TicketPDF"

	src, err := s.ticketSource(ctx, bookingID)
	if err != nil {
		return TicketDocument{}, fmt.Errorf("%s: %w", op, err)
	}

	v := render.ValidateTicket(src)

	qr, err := render.QRCode(v.Data.QRPayload, render.QRSize)
	if err != nil {
		return TicketDocument{}, fmt.Errorf("%s: %w", op, err)
	}

	pdf, err := render.TicketPDF(v.Data, qr)
	if err != nil {
		return TicketDocument{}, fmt.Errorf("%s: %w", op, err)
	}

	return TicketDocument{
		BookingRef: v.Data.BookingRef,
		Filename:   fmt.Sprintf("NIBOG-Ticket-%s.pdf", v.Data.BookingRef),
		PDF:        pdf,
	}, nil
}

func (s *Service) ticketSource(ctx context.Context, bookingID int64) (domain.TicketSource, error) {
	load := func(ctx context.Context) (domain.TicketSource, error) {
		src, err := s.deps.Bookings.TicketSource(ctx, bookingID)
		if err != nil {
			return domain.TicketSource{}, err
		}
		return *src, nil
	}

	if s.deps.Cache == nil {
		return load(ctx)
	}

	return redisrepo.GetOrSetJSON(ctx, s.deps.Cache, redisx.KeyTicket(bookingID), s.cfg.TicketCacheTTL, load)
}
