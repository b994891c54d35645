package postgres

import (
	"context"
	"fmt"

	"pix-subscription/internal/domain"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id::text, name, "interval", price::text, is_active, created_at`

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, "interval", price, is_active, created_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6)
ON CONFLICT (id) DO UPDATE
  SET name       = EXCLUDED.name,
      "interval" = EXCLUDED."interval",
      price      = EXCLUDED.price,
      is_active  = EXCLUDED.is_active;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		plan.ID, plan.Name, string(plan.Interval), plan.Price.StringFixed(2), plan.IsActive, plan.CreatedAt,
	)
	return mapExecErr(err)
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *PostgresPlanRepo) FindActiveByInterval(ctx context.Context, tx repository.Tx, interval model.PlanType) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + `
  FROM plans
 WHERE "interval" = $1 AND is_active
 ORDER BY created_at DESC
 LIMIT 1`
	row, err := pickRow(ctx, r.pool, tx, q, string(interval))
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *PostgresPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+planColumns+` FROM plans WHERE is_active ORDER BY price ASC`)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapScanErr(err)
	}
	return out, nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var (
		p               model.Plan
		interval, price string
	)
	if err := row.Scan(&p.ID, &p.Name, &interval, &price, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q: %v", domain.ErrReadDatabaseRow, price, err)
	}
	p.Price = d
	p.Interval = model.PlanType(interval)
	return &p, nil
}
