// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"pix-subscription/internal/domain"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/adapter"
	"pix-subscription/internal/domain/ports/repository"
	"pix-subscription/internal/infra/logging"
	"pix-subscription/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

type OutcomeKind int

const (
	OutcomeIgnored OutcomeKind = iota
	OutcomeApplied
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	default:
		return "ignored"
	}
}

// Outcome reasons.
const (
	ReasonUnsupportedEvent = "unsupported_event"
	ReasonBadSignature     = "bad_signature"
	ReasonOrderFetch       = "order_fetch"
	ReasonNotPaid          = "not_paid"
	ReasonUnknownOrder     = "unknown_order"
	ReasonIntentLookup     = "intent_lookup"
	ReasonAlreadyApproved  = "already_approved"
	ReasonAlreadyHandled   = "already_handled"
	ReasonActivation       = "activation"
)

// Outcome is the result of reconciling one notification. Callers log it;
// the processor always gets a 200 regardless.
type Outcome struct {
	Kind      OutcomeKind
	Reason    string
	PaymentID string
	Err       error
}

// WebhookEvent is a processor notification as received over HTTP.
type WebhookEvent struct {
	Type       string // query "type"
	DataID     string // query "data.id"; the signed resource id
	RequestID  string // x-request-id
	Signature  string // x-signature
	Action     string // body "action"
	BodyDataID string // body "data.id"; preferred over DataID for the lookup
}

type SignatureVerifier interface {
	Verify(signatureHeader, requestID, dataID string) bool
}

// ActivationNotifier is told about every applied activation. Implementations must not block.
type ActivationNotifier interface {
	NotifyActivation(ctx context.Context, intent *model.PaymentIntent, sub *model.Subscription)
}

// ErrorReporter forwards failures to the error tracker.
type ErrorReporter interface {
	Capture(ctx context.Context, err error, tags map[string]string)
}

var paidStatuses = map[string]bool{"processed": true, "paid": true}
var paidPaymentStatuses = map[string]bool{"approved": true, "paid": true, "accredited": true}
var paidActions = map[string]bool{"order.paid": true, "payment.approved": true}

// IsPaid decides whether a fetched order counts as paid. Any one signal is enough.
func IsPaid(order *adapter.FetchedOrder, action string) bool {
	if order == nil {
		return paidActions[strings.ToLower(action)]
	}
	return paidStatuses[strings.ToLower(order.Status)] ||
		strings.EqualFold(order.StatusDetail, "accredited") ||
		paidPaymentStatuses[strings.ToLower(order.PaymentStatus)] ||
		paidActions[strings.ToLower(action)]
}

type ReconcileUseCase struct {
	gateway      adapter.OrderGateway
	payments     repository.PaymentRepository
	subs         SubscriptionUseCase
	tm           repository.TransactionManager
	verifier     SignatureVerifier
	notifier     ActivationNotifier
	reporter     ErrorReporter
	fetchTimeout time.Duration
	log          *zerolog.Logger
	now          func() time.Time
}

// NewReconcileUseCase wires the reconciler. notifier and reporter may be nil.
func NewReconcileUseCase(
	gateway adapter.OrderGateway,
	payments repository.PaymentRepository,
	subs SubscriptionUseCase,
	tm repository.TransactionManager,
	verifier SignatureVerifier,
	notifier ActivationNotifier,
	reporter ErrorReporter,
	fetchTimeout time.Duration,
	logger *zerolog.Logger,
) *ReconcileUseCase {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "reconciler").Logger()
	return &ReconcileUseCase{
		gateway:      gateway,
		payments:     payments,
		subs:         subs,
		tm:           tm,
		verifier:     verifier,
		notifier:     notifier,
		reporter:     reporter,
		fetchTimeout: fetchTimeout,
		log:          &l,
		now:          time.Now,
	}
}

// Reconcile authenticates ev, re-reads the order from the processor and applies
// the approval at most once.
func (u *ReconcileUseCase) Reconcile(ctx context.Context, ev WebhookEvent) (out Outcome) {
	defer logging.TraceDuration(u.log, "ReconcileUC.Reconcile")()
	start := time.Now()
	defer func() {
		metrics.ObserveWebhook(out.Kind.String(), out.Reason, time.Since(start))
		u.logOutcome(ctx, "webhook", ev.DataID, out)
	}()

	if ev.Type != "order" || ev.DataID == "" {
		return Outcome{Kind: OutcomeIgnored, Reason: ReasonUnsupportedEvent}
	}
	if !u.verifier.Verify(ev.Signature, ev.RequestID, ev.DataID) {
		return Outcome{Kind: OutcomeIgnored, Reason: ReasonBadSignature}
	}

	orderID := ev.BodyDataID
	if orderID == "" {
		orderID = ev.DataID
	}
	return u.reconcileOrder(ctx, orderID, ev.Action)
}

// ReconcileOrder runs the approval path for a known order id without a
// notification; the pending sweeper uses it.
func (u *ReconcileUseCase) ReconcileOrder(ctx context.Context, orderID string) Outcome {
	out := u.reconcileOrder(ctx, orderID, "")
	u.logOutcome(ctx, "sweeper", orderID, out)
	return out
}

func (u *ReconcileUseCase) reconcileOrder(ctx context.Context, orderID, action string) Outcome {
	fetchCtx, cancel := context.WithTimeout(ctx, u.fetchTimeout)
	order, err := u.gateway.GetOrder(fetchCtx, orderID)
	cancel()
	if err != nil {
		return u.fail(ctx, ReasonOrderFetch, "", err)
	}
	if !IsPaid(order, action) {
		return Outcome{Kind: OutcomeIgnored, Reason: ReasonNotPaid}
	}

	intent, err := u.payments.FindByProcessorOrderID(ctx, repository.NoTX, model.PaymentSourceMercadoPago, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return Outcome{Kind: OutcomeIgnored, Reason: ReasonUnknownOrder}
	}
	if err != nil {
		return u.fail(ctx, ReasonIntentLookup, "", err)
	}
	if intent.IsApproved() {
		return Outcome{Kind: OutcomeIgnored, Reason: ReasonAlreadyApproved, PaymentID: intent.ID}
	}
	if !intent.Status.CanTransitionTo(model.PaymentStatusApproved) {
		// rejected by the gateway at creation; a later payment cannot revive it
		return Outcome{Kind: OutcomeIgnored, Reason: ReasonAlreadyHandled, PaymentID: intent.ID}
	}

	var (
		sub     *model.Subscription
		handled bool
	)
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		n, err := u.payments.ApproveIfPending(ctx, tx, intent.ID, u.now().UTC())
		if err != nil {
			return err
		}
		if n == 0 {
			handled = true
			return nil
		}
		sub, err = u.subs.Activate(ctx, tx, intent.UserID, intent.PlanType)
		return err
	})
	if err != nil {
		return u.fail(ctx, ReasonActivation, intent.ID, err)
	}
	if handled {
		return Outcome{Kind: OutcomeIgnored, Reason: ReasonAlreadyHandled, PaymentID: intent.ID}
	}

	metrics.IncApproved(string(intent.PlanType), intent.Currency, intent.Amount)
	if u.notifier != nil {
		u.notifier.NotifyActivation(ctx, intent, sub)
	}
	return Outcome{Kind: OutcomeApplied, PaymentID: intent.ID}
}

func (u *ReconcileUseCase) fail(ctx context.Context, reason, paymentID string, err error) Outcome {
	if u.reporter != nil {
		u.reporter.Capture(ctx, err, map[string]string{"reason": reason, "payment_id": paymentID})
	}
	return Outcome{Kind: OutcomeFailed, Reason: reason, PaymentID: paymentID, Err: err}
}

func (u *ReconcileUseCase) logOutcome(ctx context.Context, via, orderID string, out Outcome) {
	if out.PaymentID != "" {
		ctx = logging.WithPaymentID(ctx, out.PaymentID)
	}
	log := logging.With(ctx, u.log)

	var ev *zerolog.Event
	switch {
	case out.Kind == OutcomeFailed:
		ev = log.Error().Err(out.Err)
	case out.Kind == OutcomeApplied:
		ev = log.Info()
	case out.Reason == ReasonBadSignature:
		ev = log.Warn()
	default:
		ev = log.Debug()
	}
	ev.Str("via", via).
		Str("order_id", orderID).
		Str("outcome", out.Kind.String()).
		Str("reason", out.Reason).
		Msg("reconcile")
}
