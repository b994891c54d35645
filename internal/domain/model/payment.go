package model

import (
	"time"

	"pix-subscription/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // order requested; awaiting processor confirmation
	PaymentStatusApproved PaymentStatus = "approved" // confirmed paid; terminal
	PaymentStatusRejected PaymentStatus = "rejected" // order creation failed at the processor
)

// PaymentSourceMercadoPago is the only processor handled by this service.
const PaymentSourceMercadoPago = "mercadopago"

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
// approved is terminal; rejected can never become approved.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusApproved || next == PaymentStatusRejected
	default:
		return false
	}
}

// PaymentIntent is the local record of one attempt to pay for a plan.
// ID doubles as the processor idempotency key and the order external reference.
type PaymentIntent struct {
	ID                 string
	UserID             string
	PlanType           PlanType
	Amount             decimal.Decimal
	Currency           string
	Status             PaymentStatus
	Source             string
	ProcessorOrderID   *string // nil until the processor answers
	ProcessorPaymentID *string
	RejectedReason     *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ApprovedAt         *time.Time
}

// NewPaymentIntent validates and constructs a pending intent.
func NewPaymentIntent(userID string, plan PlanType, amount decimal.Decimal, currency string) (*PaymentIntent, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !plan.Valid() {
		return nil, domain.ErrInvalidPlan
	}
	// stored and charged with two decimals, so the rounded value must be positive
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &PaymentIntent{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanType:  plan,
		Amount:    amount,
		Currency:  currency,
		Status:    PaymentStatusPending,
		Source:    PaymentSourceMercadoPago,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *PaymentIntent) IsZero() bool     { return p == nil || p.ID == "" }
func (p *PaymentIntent) IsApproved() bool { return p != nil && p.Status == PaymentStatusApproved }
