package service

import (
	"log/slog"
	"time"

	postgresrepo "github.com/u3m2a1/nibog-sub001/internal/repository/postgres"
	redisrepo "github.com/u3m2a1/nibog-sub001/internal/repository/redis"
	"github.com/u3m2a1/nibog-sub001/internal/render"
	"github.com/u3m2a1/nibog-sub001/internal/service/finalize"
	"github.com/u3m2a1/nibog-sub001/internal/service/notify"
	"github.com/u3m2a1/nibog-sub001/internal/service/payment"
	"github.com/u3m2a1/nibog-sub001/internal/service/reconcile"
	"github.com/u3m2a1/nibog-sub001/internal/uow"
)

type Services struct {
	Payments     *payment.Service
	Certificates *notify.CertificateGenerator
	Tickets      *notify.Effects
}

type Config struct {
	Payment           payment.Config
	Poll              reconcile.Policy
	FinalizeLockTTL   time.Duration
	CertificatePacing time.Duration
}

// Infra groups the adapters the services are built on.
type Infra struct {
	Store      *postgresrepo.Store
	Intents    *redisrepo.IntentStore
	Idem       *redisrepo.IdempotencyStore
	Cache      *redisrepo.Cache
	Limiter    *redisrepo.SlidingWindowLimiter
	Gateway    payment.Gateway
	Mailer     notify.Mailer
	Settings   notify.EmailSettings
	Publisher  notify.BookingPublisher
	Rasterizer render.Rasterizer
}

func NewServices(infra Infra, cfg Config, logger *slog.Logger) *Services {
	bookings := infra.Store.Bookings()

	dispatcher := notify.NewDispatcher(infra.Mailer, infra.Settings, logger)
	effects := notify.NewEffects(bookings, dispatcher, infra.Publisher, logger)

	finalizer := finalize.New(
		finalize.PostgresBookings{Repo: bookings},
		uow.NewUoW(infra.Store, logger),
		infra.Idem,
		cfg.FinalizeLockTTL,
		logger,
	)

	deps := payment.Deps{
		Gateway:   infra.Gateway,
		Intents:   infra.Intents,
		Bookings:  bookings,
		Poller:    reconcile.New(infra.Gateway, cfg.Poll, logger),
		Finalizer: finalizer,
		Cache:     infra.Cache,
		Effects:   effects.For,
	}
	if infra.Limiter != nil {
		deps.Limiter = infra.Limiter
	}

	var certOpts []notify.GeneratorOption
	if infra.Rasterizer != nil {
		certOpts = append(certOpts, notify.WithRasterizer(infra.Rasterizer))
	}

	return &Services{
		Payments:     payment.New(deps, cfg.Payment, logger),
		Certificates: notify.NewCertificateGenerator(infra.Store.Certificates(), cfg.CertificatePacing, logger, certOpts...),
		Tickets:      effects,
	}
}
