// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"pix-subscription/internal/domain"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/repository"
	"pix-subscription/internal/infra/logging"
	"pix-subscription/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// Activate grants planType to userID starting now. It must run inside the
	// caller's transaction so activation commits or rolls back with the approval.
	Activate(ctx context.Context, tx repository.Tx, userID string, planType model.PlanType) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs  repository.SubscriptionRepository
	plans repository.PlanRepository
	users repository.UserRepository
	log   *zerolog.Logger
	now   func() time.Time
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, plans repository.PlanRepository, users repository.UserRepository, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "subscription_uc").Logger()
	return &subscriptionUC{subs: subs, plans: plans, users: users, log: &l, now: time.Now}
}

func (uc *subscriptionUC) Activate(ctx context.Context, tx repository.Tx, userID string, planType model.PlanType) (*model.Subscription, error) {
	defer logging.TraceDuration(uc.log, "SubscriptionUC.Activate")()
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	log := logging.With(logging.WithUserID(ctx, userID), uc.log)

	// serialises concurrent activations of one user until tx ends
	if err := uc.subs.LockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	start := uc.now().UTC()
	end, known := planType.EndDate(start)
	if !known {
		log.Warn().Str("plan", string(planType)).Msg("unknown plan type; granting one month")
		metrics.IncUnknownPlanFallback()
	}

	sub, err := uc.subs.FindLatestByUser(ctx, tx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	mode := "renewed"
	if sub == nil {
		mode = "created"
		ref, err := uc.customerRef(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		sub = &model.Subscription{
			ID:                 uuid.NewString(),
			UserID:             userID,
			BillingCustomerRef: ref,
			CreatedAt:          start,
		}
	}
	sub.Renew(planType, start, end)

	if err := uc.subs.Save(ctx, tx, sub); err != nil {
		return nil, err
	}

	uc.linkProfilePlan(ctx, tx, log, userID, planType)

	metrics.IncActivation(string(planType), mode)
	log.Info().
		Str("subscription_id", sub.ID).
		Str("plan", string(planType)).
		Str("mode", mode).
		Time("end_date", end).
		Msg("subscription activated")
	return sub, nil
}

func (uc *subscriptionUC) customerRef(ctx context.Context, tx repository.Tx, userID string) (string, error) {
	profile, err := uc.users.FindBillingProfile(ctx, tx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return model.PixCustomerRef(userID), nil
	}
	if err != nil {
		return "", err
	}
	return profile.CustomerRef(), nil
}

// linkProfilePlan records the plan on the user's profile; failures are logged only.
func (uc *subscriptionUC) linkProfilePlan(ctx context.Context, tx repository.Tx, log *zerolog.Logger, userID string, planType model.PlanType) {
	plan, err := uc.plans.FindActiveByInterval(ctx, tx, planType)
	if err != nil {
		log.Warn().Err(err).Str("plan", string(planType)).Msg("no plan row for profile association")
		return
	}
	if err := uc.users.SetProfilePlan(ctx, tx, userID, plan.ID); err != nil {
		log.Warn().Err(err).Str("plan_id", plan.ID).Msg("failed to associate plan with profile")
	}
}
