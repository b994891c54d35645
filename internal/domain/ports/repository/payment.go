package repository

import (
	"context"
	"time"

	"pix-subscription/internal/domain/model"
)

// -----------------------------
// PIX payment intents
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PaymentIntent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentIntent, error)
	// FindByIDForUser returns domain.ErrNotFound when id belongs to another user.
	FindByIDForUser(ctx context.Context, tx Tx, id, userID string) (*model.PaymentIntent, error)
	FindByProcessorOrderID(ctx context.Context, tx Tx, source, orderID string) (*model.PaymentIntent, error)
	AttachProcessorIDs(ctx context.Context, tx Tx, id, orderID string, paymentID *string) error

	// ApproveIfPending flips a pending intent to approved and returns the rows affected.
	// Zero means another delivery got there first or the intent is not pending.
	ApproveIfPending(ctx context.Context, tx Tx, id string, at time.Time) (int64, error)
	RejectIfPending(ctx context.Context, tx Tx, id, reason string) (int64, error)

	// ListPendingBetween returns pending intents with a processor order created in [from, to),
	// least recently checked first.
	ListPendingBetween(ctx context.Context, tx Tx, from, to time.Time, limit int) ([]*model.PaymentIntent, error)
	MarkChecked(ctx context.Context, tx Tx, id string, at time.Time) error
}
