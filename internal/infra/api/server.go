// File: internal/infra/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"pix-subscription/internal/config"
	"pix-subscription/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Reconciler is satisfied by *usecase.ReconcileUseCase.
type Reconciler interface {
	Reconcile(ctx context.Context, ev usecase.WebhookEvent) usecase.Outcome
}

// Pinger reports database reachability for /health; *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the PIX order API, the processor webhook and ops endpoints.
type Server struct {
	payments   usecase.PaymentUseCase
	reconciler Reconciler
	auth       *Authenticator
	db         Pinger
	validate   *validator.Validate
	cfg        config.HTTPConfig
	log        *zerolog.Logger
}

func NewServer(
	payments usecase.PaymentUseCase,
	reconciler Reconciler,
	auth *Authenticator,
	db Pinger,
	cfg config.HTTPConfig,
	logger *zerolog.Logger,
) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		payments:   payments,
		reconciler: reconciler,
		auth:       auth,
		db:         db,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		cfg:        cfg,
		log:        &l,
	}
}

// Routes builds the router. Handlers never see more than cfg.MaxBodyBytes of body.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(s.cfg.RequestTimeout))
	r.Use(MaxBody(s.cfg.MaxBodyBytes))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// the processor retries on anything but 2xx, whatever the method
	r.HandleFunc("/webhooks/mercadopago", s.handleWebhook)

	r.Route("/api/v1/pix", func(r chi.Router) {
		r.Use(s.auth.Require)
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/payments", s.handleGetStatus)
		r.Get("/payments/{paymentId}", s.handleGetStatus)
	})
	return r
}

// Serve runs the HTTP server until ctx is cancelled, then drains for up to 10s.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
