package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pix-subscription/internal/domain"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// FindBillingProfile joins the account row with its optional profile row.
func (r *PostgresUserRepo) FindBillingProfile(ctx context.Context, tx repository.Tx, userID string) (*model.BillingProfile, error) {
	const q = `
SELECT u.id::text,
       COALESCE(NULLIF(p.email, ''), u.email, ''),
       COALESCE(p.phone, ''),
       COALESCE(p.full_name, ''),
       u.billing_customer_id,
       p.plan_id::text
  FROM users u
  LEFT JOIN user_profiles p ON p.id = u.id
 WHERE u.id = $1`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var b model.BillingProfile
	if err := row.Scan(&b.UserID, &b.Email, &b.Phone, &b.FullName, &b.BillingCustomerRef, &b.PlanID); err != nil {
		return nil, mapScanErr(err)
	}
	return &b, nil
}

// SetProfilePlan runs under a savepoint when given a transaction, so a failed
// update leaves the caller's transaction usable.
func (r *PostgresUserRepo) SetProfilePlan(ctx context.Context, tx repository.Tx, userID, planID string) error {
	const q = `UPDATE user_profiles SET plan_id = $2, updated_at = NOW() WHERE id = $1;`
	ptx, ok := tx.(pgx.Tx)
	if !ok {
		return setProfilePlan(ctx, r.pool, tx, q, userID, planID)
	}
	sp, err := ptx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := setProfilePlan(ctx, r.pool, sp, q, userID, planID); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func setProfilePlan(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q, userID, planID string) error {
	cmd, err := execSQL(ctx, pool, tx, q, userID, planID)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
