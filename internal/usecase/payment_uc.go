// File: internal/usecase/payment_uc.go
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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID string
	Email  string // email claim of the token; used when the profile has none
}

// PixOrder is what the client needs to render the PIX charge.
type PixOrder struct {
	PaymentID     string
	CopyPasteCode string
	QRCodeImage   string // base64 PNG, passed through from the processor
	PaymentLink   string
	ExpiresAt     time.Time
	Amount        decimal.Decimal
	Currency      string
}

// PaymentStatusView is the status query answer.
type PaymentStatusView struct {
	PaymentID string
	Status    model.PaymentStatus
	CreatedAt time.Time
}

type PaymentUseCase interface {
	// CreateOrder persists a pending intent and opens a PIX order at the processor.
	CreateOrder(ctx context.Context, caller Caller, planType string, amountOverride *decimal.Decimal) (*PixOrder, error)
	// GetStatus returns the caller's own intent; other users' intents are domain.ErrNotFound.
	GetStatus(ctx context.Context, userID, paymentID string) (*PaymentStatusView, error)
}

// RateLimiter is satisfied by the redis fixed-window limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PaymentOptions carries the order settings read from config.
type PaymentOptions struct {
	Currency  string
	PixExpiry time.Duration
	Dev       bool

	// Limiter is optional; nil disables the per-user limit.
	Limiter        RateLimiter
	LimitPerWindow int
	LimitWindow    time.Duration
}

type paymentUC struct {
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	users    repository.UserRepository
	gateway  adapter.OrderGateway
	opts     PaymentOptions
	log      *zerolog.Logger
	now      func() time.Time
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	users repository.UserRepository,
	gateway adapter.OrderGateway,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	if opts.Currency == "" {
		opts.Currency = "BRL"
	}
	if opts.PixExpiry <= 0 {
		opts.PixExpiry = 30 * time.Minute
	}
	l := logger.With().Str("component", "payment_uc").Logger()
	return &paymentUC{
		payments: payments,
		plans:    plans,
		users:    users,
		gateway:  gateway,
		opts:     opts,
		log:      &l,
		now:      time.Now,
	}
}

func (u *paymentUC) CreateOrder(ctx context.Context, caller Caller, planType string, amountOverride *decimal.Decimal) (*PixOrder, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateOrder")()
	log := logging.With(ctx, u.log)

	plan, err := model.ParsePlanType(planType)
	if err != nil {
		metrics.IncOrder("invalid_plan")
		return nil, err
	}
	if err := u.checkRate(ctx, caller.UserID); err != nil {
		metrics.IncOrder("rate_limited")
		return nil, err
	}

	amount, err := u.resolveAmount(ctx, plan, amountOverride)
	if errors.Is(err, domain.ErrInvalidAmount) {
		metrics.IncOrder("invalid_amount")
		return nil, err
	}
	if err != nil {
		metrics.IncOrder("no_price")
		return nil, err
	}
	email, err := u.resolveEmail(ctx, caller)
	if err != nil {
		metrics.IncOrder("no_contact")
		return nil, err
	}

	intent, err := model.NewPaymentIntent(caller.UserID, plan, amount, u.opts.Currency)
	if err != nil {
		return nil, err
	}
	if err := u.payments.Save(ctx, repository.NoTX, intent); err != nil {
		metrics.IncOrder("store_error")
		return nil, fmt.Errorf("save payment intent: %w", err)
	}
	ctx = logging.WithPaymentID(ctx, intent.ID)
	log = logging.With(ctx, u.log)

	created, err := u.gateway.CreatePixOrder(ctx, adapter.PixOrderRequest{
		ExternalReference: intent.ID,
		Amount:            intent.Amount,
		PayerEmail:        email,
		Expiry:            u.opts.PixExpiry,
	})
	if err != nil {
		u.reject(ctx, log, intent.ID, err)
		metrics.IncOrder("gateway_error")
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
	}

	var paymentID *string
	if created.PaymentID != "" {
		paymentID = &created.PaymentID
	}
	if err := u.payments.AttachProcessorIDs(ctx, repository.NoTX, intent.ID, created.OrderID, paymentID); err != nil {
		// the processor order exists but webhooks cannot be matched to it
		log.Error().Err(err).Str("order_id", created.OrderID).Msg("failed to store processor ids")
		metrics.IncOrder("store_error")
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
	}

	expiresAt := u.now().Add(u.opts.PixExpiry)
	if created.ExpiresAt != nil {
		expiresAt = *created.ExpiresAt
	}

	log.Info().
		Str("order_id", created.OrderID).
		Str("plan", string(plan)).
		Str("amount", intent.Amount.StringFixed(2)).
		Str("email", logging.Redact(email, u.opts.Dev)).
		Msg("pix order created")
	metrics.IncOrder("created")

	return &PixOrder{
		PaymentID:     intent.ID,
		CopyPasteCode: created.QRCode,
		QRCodeImage:   created.QRCodeBase64,
		PaymentLink:   created.TicketURL,
		ExpiresAt:     expiresAt,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
	}, nil
}

func (u *paymentUC) GetStatus(ctx context.Context, userID, paymentID string) (*PaymentStatusView, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.GetStatus")()
	if userID == "" || paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	// intent ids are UUIDs; anything else cannot name a payment
	if _, err := uuid.Parse(paymentID); err != nil {
		return nil, domain.ErrNotFound
	}
	p, err := u.payments.FindByIDForUser(ctx, repository.NoTX, paymentID, userID)
	if err != nil {
		return nil, err
	}
	return &PaymentStatusView{PaymentID: p.ID, Status: p.Status, CreatedAt: p.CreatedAt}, nil
}

func (u *paymentUC) checkRate(ctx context.Context, userID string) error {
	if u.opts.Limiter == nil || u.opts.LimitPerWindow <= 0 {
		return nil
	}
	ok, err := u.opts.Limiter.Allow(ctx, rateKey(userID), u.opts.LimitPerWindow, u.opts.LimitWindow)
	if err != nil {
		// limiter outage must not block payments
		u.log.Warn().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !ok {
		return domain.ErrRateLimited
	}
	return nil
}

func rateKey(userID string) string { return "rate_limit:" + userID + ":create_pix_order" }

// resolveAmount prefers a positive override, then the active plan price.
// An override below one cent is refused rather than charged as 0.00.
func (u *paymentUC) resolveAmount(ctx context.Context, plan model.PlanType, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil && override.IsPositive() {
		rounded := override.Round(2)
		if !rounded.IsPositive() {
			return decimal.Zero, domain.ErrInvalidAmount
		}
		return rounded, nil
	}
	p, err := u.plans.FindActiveByInterval(ctx, repository.NoTX, plan)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return decimal.Zero, domain.ErrPlanNotFound
	case err != nil:
		return decimal.Zero, fmt.Errorf("lookup plan price: %w", err)
	case !p.Price.IsPositive():
		return decimal.Zero, domain.ErrPlanNotFound
	}
	return p.Price, nil
}

// resolveEmail prefers the billing profile email over the token claim.
func (u *paymentUC) resolveEmail(ctx context.Context, caller Caller) (string, error) {
	profile, err := u.users.FindBillingProfile(ctx, repository.NoTX, caller.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Err(err).Msg("billing profile lookup failed; using token email")
	}
	if err == nil && profile.Email != "" {
		return profile.Email, nil
	}
	if caller.Email != "" {
		return caller.Email, nil
	}
	return "", domain.ErrMissingContactInfo
}

func (u *paymentUC) reject(ctx context.Context, log *zerolog.Logger, intentID string, cause error) {
	reason := cause.Error()
	var gerr *adapter.GatewayError
	if errors.As(cause, &gerr) && gerr.Message != "" {
		reason = gerr.Message
	}
	n, err := u.payments.RejectIfPending(ctx, repository.NoTX, intentID, reason)
	if err != nil {
		log.Error().Err(err).Msg("failed to mark intent rejected")
		return
	}
	log.Warn().Err(cause).Int64("rows", n).Msg("gateway refused pix order; intent rejected")
}
