// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pix-subscription/internal/config"
	"pix-subscription/internal/domain/ports/adapter"
	"pix-subscription/internal/domain/ports/repository"
	"pix-subscription/internal/infra/adapters/notify"
	payAdapters "pix-subscription/internal/infra/adapters/payment"
	"pix-subscription/internal/infra/alerting"
	"pix-subscription/internal/infra/api"
	pg "pix-subscription/internal/infra/db/postgres"
	"pix-subscription/internal/infra/logging"
	"pix-subscription/internal/infra/metrics"
	"pix-subscription/internal/infra/payment"
	red "pix-subscription/internal/infra/redis"
	"pix-subscription/internal/infra/sched"
	"pix-subscription/internal/infra/worker"
	"pix-subscription/internal/usecase"

	"github.com/rs/zerolog/log"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop gateway allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	reporter, err := alerting.NewReporter(cfg.Sentry, version, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("sentry")
	}
	defer reporter.Flush(2 * time.Second)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	var planRepo repository.PlanRepository = pg.NewPostgresPlanRepo(pool)

	// ---- Redis (optional) ----
	var (
		limiter usecase.RateLimiter
		locker  red.Locker
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		planRepo = pg.NewPlanRepoCacheDecorator(planRepo, redisClient, cfg.Redis.TTL, logger)
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
	} else {
		logger.Warn().Msg("redis not configured: plan cache, rate limiting and sweeper lock disabled")
	}

	// ---- Payment processor ----
	var gateway adapter.OrderGateway
	if cfg.Runtime.Dev && strings.EqualFold(cfg.Payment.MercadoPago.AccessToken, "noop") {
		logger.Warn().Msg("using noop order gateway")
		gateway = payAdapters.NewNoopOrderGateway()
	} else {
		gateway, err = payAdapters.NewMercadoPagoGateway(cfg.Payment.MercadoPago, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("mercadopago gateway")
		}
	}

	verifier := payment.Verifier{Secret: cfg.Webhook.Secret, RequireSignature: cfg.Webhook.RequireSignature}
	if verifier.TrustMode() {
		logger.Warn().Msg("webhook secret not set: notifications are accepted without signature verification")
	}

	// ---- Notifications ----
	jobs := worker.NewPool("notify", cfg.Notify.Workers, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	var notifier usecase.ActivationNotifier
	if cfg.Notify.WhatsApp.APIBaseURL != "" && cfg.Notify.WhatsApp.APIKey != "" {
		wa, err := notify.NewWhatsAppNotifier(cfg.Notify.WhatsApp, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("whatsapp")
		}
		notifier = usecase.NewNotificationUseCase(userRepo, wa, jobs, cfg.Runtime.Dev, logger)
	} else {
		logger.Info().Msg("whatsapp not configured: activation messages disabled")
	}

	// ---- Use cases ----
	mp := cfg.Payment.MercadoPago
	payUC := usecase.NewPaymentUseCase(payRepo, planRepo, userRepo, gateway, usecase.PaymentOptions{
		Currency:       mp.Currency,
		PixExpiry:      mp.PixExpiry,
		Dev:            cfg.Runtime.Dev,
		Limiter:        limiter,
		LimitPerWindow: cfg.RateLimit.CreateOrderPerWindow,
		LimitWindow:    cfg.RateLimit.Window,
	}, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, planRepo, userRepo, logger)
	recUC := usecase.NewReconcileUseCase(gateway, payRepo, subUC, tm, verifier, notifier, reporter, cfg.Webhook.FetchTimeout, logger)

	// ---- Sweeper ----
	if cfg.Sweeper.Enabled {
		sweeper := sched.NewPaymentReconciler(recUC, payRepo, locker, sched.SweeperOptions{
			Interval:   cfg.Sweeper.Interval,
			StaleAfter: cfg.Sweeper.StaleAfter,
			MaxAge:     cfg.Sweeper.MaxAge,
			BatchSize:  cfg.Sweeper.BatchSize,
		}, logger)
		go func() { _ = sweeper.Run(ctx) }()
	}

	// ---- Pool stats ----
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				metrics.ObservePool(pool.Stat())
			}
		}
	}()

	// ---- HTTP ----
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	srv := api.NewServer(payUC, recUC, auth, pool, cfg.HTTP, logger)
	if err := srv.Serve(ctx, fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
		logger.Error().Err(err).Msg("http server error")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}
