// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pix-subscription/internal/domain"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/adapter"
	"pix-subscription/internal/domain/ports/repository"
	"pix-subscription/internal/infra/logging"
	"pix-subscription/internal/infra/metrics"
	"pix-subscription/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ActivationNotifier = (*NotificationUseCase)(nil)

// TaskSubmitter is satisfied by *worker.Pool.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

// NotificationUseCase tells users their subscription is active. Delivery runs
// on a worker pool and never affects the payment outcome.
type NotificationUseCase struct {
	users    repository.UserRepository
	notifier adapter.Notifier
	pool     TaskSubmitter
	timeout  time.Duration
	dev      bool
	log      *zerolog.Logger
}

func NewNotificationUseCase(users repository.UserRepository, notifier adapter.Notifier, pool TaskSubmitter, dev bool, logger *zerolog.Logger) *NotificationUseCase {
	l := logger.With().Str("component", "notification_uc").Logger()
	return &NotificationUseCase{
		users:    users,
		notifier: notifier,
		pool:     pool,
		timeout:  15 * time.Second,
		dev:      dev,
		log:      &l,
	}
}

func (n *NotificationUseCase) NotifyActivation(ctx context.Context, intent *model.PaymentIntent, sub *model.Subscription) {
	if intent == nil || sub == nil {
		return
	}
	userID, plan, end := intent.UserID, sub.PlanType, sub.EndDate
	traceID := logging.TraceID(ctx)
	err := n.pool.Submit(func(ctx context.Context) error {
		return n.sendActivation(logging.WithTraceID(ctx, traceID), userID, plan, end)
	})
	if err != nil {
		logging.With(ctx, n.log).Warn().Err(err).Msg("activation notification not queued")
		metrics.IncNotification(n.notifier.Name(), "dropped")
	}
}

func (n *NotificationUseCase) sendActivation(ctx context.Context, userID string, plan model.PlanType, end time.Time) error {
	ctx, cancel := context.WithTimeout(logging.WithUserID(ctx, userID), n.timeout)
	defer cancel()
	log := logging.With(ctx, n.log)

	profile, err := n.users.FindBillingProfile(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if profile == nil || profile.Phone == "" {
		metrics.IncNotification(n.notifier.Name(), "skipped")
		return nil
	}

	err = n.notifier.SendText(ctx, profile.Phone, activationText(profile.FullName, plan, end))
	switch {
	case errors.Is(err, adapter.ErrRecipientUnreachable):
		log.Info().Str("phone", logging.Redact(profile.Phone, n.dev)).Msg("recipient has no messaging account")
		metrics.IncNotification(n.notifier.Name(), "unreachable")
		return nil
	case err != nil:
		metrics.IncNotification(n.notifier.Name(), "error")
		return fmt.Errorf("send activation notice: %w", err)
	}
	metrics.IncNotification(n.notifier.Name(), "sent")
	return nil
}

var planLabels = map[model.PlanType]string{
	model.PlanMonthly:    "mensal",
	model.PlanQuarterly:  "trimestral",
	model.PlanSemiannual: "semestral",
	model.PlanYearly:     "anual",
}

func activationText(name string, plan model.PlanType, end time.Time) string {
	label, ok := planLabels[plan]
	if !ok {
		label = string(plan)
	}
	greeting := "Olá!"
	if name != "" {
		greeting = "Olá, " + name + "!"
	}
	return fmt.Sprintf("%s Seu pagamento PIX foi confirmado e sua assinatura %s está ativa até %s.",
		greeting, label, end.Format("02/01/2006"))
}
