package postgres

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pix-subscription/internal/domain"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, status, plan_type, start_date, end_date, current_period_end, billing_customer_ref, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  status=$3, plan_type=$4, start_date=$5, end_date=$6, current_period_end=$7, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, string(s.Status), string(s.PlanType), s.StartDate, s.EndDate, s.CurrentPeriodEnd,
		s.BillingCustomerRef, s.CreatedAt, s.UpdatedAt)
	return mapExecErr(err)
}

func (r *subscriptionRepo) FindLatestByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := forUpdate(`
SELECT id::text, user_id::text, status, plan_type, start_date, end_date, current_period_end, billing_customer_ref, created_at, updated_at
  FROM subscriptions
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT 1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var (
		s            model.Subscription
		status, plan string
	)
	if err := row.Scan(&s.ID, &s.UserID, &status, &plan, &s.StartDate, &s.EndDate, &s.CurrentPeriodEnd,
		&s.BillingCustomerRef, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	s.Status = model.SubscriptionStatus(status)
	s.PlanType = model.PlanType(plan)
	return &s, nil
}

// LockUser acquires a per-user advisory lock released at transaction end.
func (r *subscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	ptx, ok := tx.(pgx.Tx)
	if !ok {
		return domain.ErrInvalidExecContext
	}
	if _, err := ptx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(userID)); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
