package repository

import (
	"context"

	"pix-subscription/internal/domain/model"
)

// SubscriptionRepository is the port for user subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	// FindLatestByUser returns the most recently created subscription, or domain.ErrNotFound.
	FindLatestByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// LockUser takes a transaction-scoped lock that serialises activations for userID.
	LockUser(ctx context.Context, tx Tx, userID string) error
}
