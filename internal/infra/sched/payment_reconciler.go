package sched

import (
	"context"
	"errors"
	"time"

	"pix-subscription/internal/domain/ports/repository"
	"pix-subscription/internal/infra/metrics"
	"pix-subscription/internal/infra/redis"
	"pix-subscription/internal/usecase"

	"github.com/rs/zerolog"
)

const sweeperLockKey = "sweeper:pix"

// OrderReconciler is satisfied by *usecase.ReconcileUseCase.
type OrderReconciler interface {
	ReconcileOrder(ctx context.Context, orderID string) usecase.Outcome
}

type SweeperOptions struct {
	Interval   time.Duration
	StaleAfter time.Duration // pending younger than this is left to the webhook
	MaxAge     time.Duration // pending older than this has expired at the processor
	BatchSize  int
}

// PaymentReconciler periodically re-checks pending PIX intents whose webhook
// never arrived or failed, and applies them through the same reconcile path.
type PaymentReconciler struct {
	rec      OrderReconciler
	payments repository.PaymentRepository
	locker   redis.Locker // optional; nil means a single instance is assumed
	opts     SweeperOptions
	log      *zerolog.Logger
	now      func() time.Time
}

func NewPaymentReconciler(rec OrderReconciler, payments repository.PaymentRepository, locker redis.Locker, opts SweeperOptions, logger *zerolog.Logger) *PaymentReconciler {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 5 * time.Minute
	}
	if opts.MaxAge <= opts.StaleAfter {
		opts.MaxAge = opts.StaleAfter + 2*time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		rec:      rec,
		payments: payments,
		locker:   locker,
		opts:     opts,
		log:      &l,
		now:      time.Now,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.opts.Interval).Msg("Starting payment reconciler")
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many intents were applied.
func (w *PaymentReconciler) Sweep(ctx context.Context) int {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweeperLockKey, w.opts.Interval)
		if errors.Is(err, redis.ErrLockHeld) {
			w.log.Debug().Msg("sweep skipped, another instance holds the lock")
			metrics.IncJob("sweeper", "skipped")
			return 0
		}
		if err != nil {
			// redis down: sweeping twice is harmless, not sweeping loses payments
			w.log.Warn().Err(err).Msg("sweeper lock unavailable, sweeping anyway")
		} else {
			defer func() {
				if err := w.locker.Unlock(context.WithoutCancel(ctx), sweeperLockKey, token); err != nil {
					w.log.Warn().Err(err).Msg("sweeper unlock failed")
				}
			}()
		}
	}

	now := w.now()
	pending, err := w.payments.ListPendingBetween(ctx, repository.NoTX, now.Add(-w.opts.MaxAge), now.Add(-w.opts.StaleAfter), w.opts.BatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending intents failed")
		metrics.IncJob("sweeper", "error")
		return 0
	}

	applied := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		if p.ProcessorOrderID == nil || *p.ProcessorOrderID == "" {
			continue
		}
		out := w.rec.ReconcileOrder(ctx, *p.ProcessorOrderID)
		if out.Kind == usecase.OutcomeApplied {
			applied++
			continue
		}
		// still pending: move it behind the intents not yet looked at
		if err := w.payments.MarkChecked(ctx, repository.NoTX, p.ID, now); err != nil {
			w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("mark checked failed")
		}
	}
	if applied > 0 {
		w.log.Info().Int("applied", applied).Int("checked", len(pending)).Msg("stale pending intents reconciled")
	}
	metrics.IncJob("sweeper", "ok")
	return applied
}
