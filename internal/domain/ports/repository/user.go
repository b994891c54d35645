package repository

import (
	"context"

	"pix-subscription/internal/domain/model"
)

// -----------------------------
// Users / billing profiles
// -----------------------------

type UserRepository interface {
	FindBillingProfile(ctx context.Context, tx Tx, userID string) (*model.BillingProfile, error)
	SetProfilePlan(ctx context.Context, tx Tx, userID, planID string) error
}
