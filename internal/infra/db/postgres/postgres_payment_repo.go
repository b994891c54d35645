package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"pix-subscription/internal/domain"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id::text, user_id::text, plan_type, amount::text, currency, status, source,
       mercadopago_order_id, mercadopago_payment_id, rejected_reason, created_at, updated_at, approved_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	const q = `
INSERT INTO pix_payments (
  id, user_id, plan_type, amount, currency, status, source,
  mercadopago_order_id, mercadopago_payment_id, rejected_reason, created_at, updated_at, approved_at
) VALUES ($1,$2,$3,$4::numeric,$5,$6,$7,$8,$9,$10,$11,$12,$13);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, string(p.PlanType), p.Amount.StringFixed(2), p.Currency, string(p.Status), p.Source,
		p.ProcessorOrderID, p.ProcessorPaymentID, p.RejectedReason, p.CreatedAt, p.UpdatedAt, p.ApprovedAt)
	return mapExecErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	q := forUpdate(`SELECT `+paymentColumns+` FROM pix_payments WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByIDForUser(ctx context.Context, tx repository.Tx, id, userID string) (*model.PaymentIntent, error) {
	q := `SELECT ` + paymentColumns + ` FROM pix_payments WHERE id=$1 AND user_id=$2`
	row, err := pickRow(ctx, r.pool, tx, q, id, userID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByProcessorOrderID(ctx context.Context, tx repository.Tx, source, orderID string) (*model.PaymentIntent, error) {
	q := forUpdate(`SELECT `+paymentColumns+` FROM pix_payments WHERE mercadopago_order_id=$1 AND source=$2 LIMIT 1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, orderID, source)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) AttachProcessorIDs(ctx context.Context, tx repository.Tx, id, orderID string, paymentID *string) error {
	const q = `
UPDATE pix_payments
   SET mercadopago_order_id = $2,
       mercadopago_payment_id = COALESCE($3, mercadopago_payment_id),
       updated_at = NOW()
 WHERE id = $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, orderID, paymentID)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApproveIfPending atomically approves only when the current status is 'pending'.
func (r *paymentRepo) ApproveIfPending(ctx context.Context, tx repository.Tx, id string, at time.Time) (int64, error) {
	const q = `
UPDATE pix_payments
   SET status = 'approved',
       approved_at = $2,
       updated_at = $2
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return 0, mapExecErr(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *paymentRepo) RejectIfPending(ctx context.Context, tx repository.Tx, id, reason string) (int64, error) {
	const q = `
UPDATE pix_payments
   SET status = 'rejected',
       rejected_reason = $2,
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, reason)
	if err != nil {
		return 0, mapExecErr(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *paymentRepo) ListPendingBetween(ctx context.Context, tx repository.Tx, from, to time.Time, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + `
  FROM pix_payments
 WHERE status = 'pending'
   AND mercadopago_order_id IS NOT NULL
   AND created_at >= $1 AND created_at < $2
 ORDER BY last_checked_at ASC NULLS FIRST, created_at ASC
 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, from, to, limit)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.PaymentIntent
	for rows.Next() {
		p, err := scanPayment(rows)
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

// MarkChecked stamps a pending intent as looked at so the next sweep reaches
// the ones behind it.
func (r *paymentRepo) MarkChecked(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE pix_payments SET last_checked_at = $2 WHERE id = $1 AND status = 'pending';`
	if _, err := execSQL(ctx, r.pool, tx, q, id, at); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*model.PaymentIntent, error) {
	var (
		p            model.PaymentIntent
		plan, status string
		amount       string
	)
	if err := row.Scan(&p.ID, &p.UserID, &plan, &amount, &p.Currency, &status, &p.Source,
		&p.ProcessorOrderID, &p.ProcessorPaymentID, &p.RejectedReason, &p.CreatedAt, &p.UpdatedAt, &p.ApprovedAt); err != nil {
		return nil, mapScanErr(err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", domain.ErrReadDatabaseRow, amount, err)
	}
	p.Amount = d
	p.PlanType = model.PlanType(plan)
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
