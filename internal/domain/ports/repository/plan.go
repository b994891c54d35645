package repository

import (
	"context"

	"pix-subscription/internal/domain/model"
)

// PlanRepository is the port for plan persistence.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	// FindActiveByInterval returns the active plan priced for interval, or domain.ErrNotFound.
	FindActiveByInterval(ctx context.Context, tx Tx, interval model.PlanType) (*model.Plan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
