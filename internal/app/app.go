package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/u3m2a1/nibog-sub001/internal/config"
	"github.com/u3m2a1/nibog-sub001/internal/events"
	"github.com/u3m2a1/nibog-sub001/internal/gateway"
	"github.com/u3m2a1/nibog-sub001/internal/identity"
	"github.com/u3m2a1/nibog-sub001/internal/postgres"
	redisx "github.com/u3m2a1/nibog-sub001/internal/redis"
	postgresrepo "github.com/u3m2a1/nibog-sub001/internal/repository/postgres"
	"github.com/u3m2a1/nibog-sub001/internal/render"
	redisrepo "github.com/u3m2a1/nibog-sub001/internal/repository/redis"
	"github.com/u3m2a1/nibog-sub001/internal/service"
	"github.com/u3m2a1/nibog-sub001/internal/service/notify"
	"github.com/u3m2a1/nibog-sub001/internal/service/payment"
	"github.com/u3m2a1/nibog-sub001/internal/service/reconcile"
	httpgin "github.com/u3m2a1/nibog-sub001/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	publisher  events.Publisher
	raster     *render.ChromeRasterizer
	httpServer *http.Server
}

// Deps are the infrastructure handles shared by the server and the CLI.
type Deps struct {
	Pool      *pgxpool.Pool
	Redis     *goredis.Client
	Gateway   *gateway.Client
	Publisher events.Publisher
	Services  *service.Services
	Idem      *redisrepo.IdempotencyStore
	Raster    *render.ChromeRasterizer
}

// Build connects to Postgres and Redis, applies migrations and assembles
// the services.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: int32(cfg.Postgres.MaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if err := postgres.Migrate(ctx, pgxPool); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	rdb, err := redisx.New(ctx, redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	publisher, err := events.New(events.Config{
		Broker:       cfg.Events.Broker,
		KafkaBrokers: cfg.Events.KafkaBrokers,
		KafkaTopic:   cfg.Events.KafkaTopic,
		RabbitURL:    cfg.Events.RabbitURL,
		RabbitQueue:  cfg.Events.RabbitQueue,
	}, redisx.NewPubSub(rdb, redisx.ChannelBookingConfirmed()), logger)
	if err != nil {
		pgxPool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to initialize events: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	idem := redisrepo.NewIdempotencyStore(rdb, cfg.Payment.IdempotencyTTL)

	gw := gateway.New(gateway.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		MerchantID:  cfg.Gateway.MerchantID,
		SaltKey:     cfg.Gateway.SaltKey,
		SaltIndex:   cfg.Gateway.SaltIndex,
		RedirectURL: cfg.Gateway.RedirectURL,
		CallbackURL: cfg.Gateway.CallbackURL,
		Timeout:     cfg.Gateway.Timeout,
	}, nil)

	mailer := notify.NewEmailClient(notify.EmailConfig{
		Endpoint: cfg.Email.Endpoint,
		FromName: cfg.Email.FromName,
		FromAddr: cfg.Email.FromAddr,
		Timeout:  cfg.Email.Timeout,
	}, nil)

	// the browser only starts on the first certificate printed
	var raster *render.ChromeRasterizer
	if cfg.Payment.CertificateRaster {
		raster = render.NewChromeRasterizer(render.RasterConfig{
			ExecPath: cfg.Payment.CertificateChromePath,
			Timeout:  cfg.Payment.CertificateRasterTimeout,
		})
	}

	// Initialize services
	infra := service.Infra{
		Store:     store,
		Intents:   redisrepo.NewIntentStore(rdb, cfg.Payment.IntentTTL),
		Idem:      idem,
		Cache:     redisrepo.NewCache(rdb),
		Limiter:   redisrepo.NewSlidingWindowLimiter(rdb, "initiate", cfg.Payment.InitiateLimit, cfg.Payment.InitiateWindow),
		Gateway:   gw,
		Mailer:    mailer,
		Settings:  mailer.Settings(),
		Publisher: publisher,
	}
	if raster != nil {
		infra.Rasterizer = raster
	}
	services := service.NewServices(infra, service.Config{
		Payment: payment.Config{TicketCacheTTL: cfg.Payment.TicketCacheTTL},
		Poll: reconcile.Policy{
			MaxAttempts: cfg.Payment.PollAttempts,
			Backoff:     reconcile.Fixed(cfg.Payment.PollInterval),
		},
		FinalizeLockTTL:   cfg.Payment.FinalizeLockTTL,
		CertificatePacing: cfg.Payment.CertificatePacing,
	}, logger)

	return &Deps{
		Pool:      pgxPool,
		Redis:     rdb,
		Gateway:   gw,
		Publisher: publisher,
		Services:  services,
		Idem:      idem,
		Raster:    raster,
	}, nil
}

// Close releases the connections opened by Build.
func (d *Deps) Close() error {
	var errs []error
	if d.Publisher != nil {
		errs = append(errs, d.Publisher.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.Raster != nil {
		d.Raster.Close()
	}
	return errors.Join(errs...)
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := Build(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	ids := identity.NewProvider(identity.Config{Secure: cfg.Server.CookieSecure})

	// Initialize Gin router
	router := httpgin.NewRouter(deps.Services, deps.Idem, ids, logger, httpgin.CORS(cfg.Server.AllowOrigins...))

	return &App{
		cfg:       cfg,
		logger:    logger,
		pool:      deps.Pool,
		rdb:       deps.Redis,
		publisher: deps.Publisher,
		raster:    deps.Raster,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown. Callback polls run up to PollAttempts*PollInterval,
	// so in-flight requests get that long to finish.
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")

		grace := time.Duration(a.cfg.Payment.PollAttempts)*a.cfg.Payment.PollInterval + 5*time.Second
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		err := a.httpServer.Shutdown(ctx)
		a.close()
		return err
	})

	return g.Wait()
}

func (a *App) close() {
	d := Deps{Pool: a.pool, Redis: a.rdb, Publisher: a.publisher, Raster: a.raster}
	if err := d.Close(); err != nil {
		a.logger.Warn("close connections", "err", err)
	}
}
