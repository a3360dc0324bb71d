package postgres

import (
	"errors"
	"time"

	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, order_no, user_id, order_type, product_id, amount, payment_method, status, transaction_id, created_at, paid_at, cancelled_at, cancel_reason`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var txnID, cancelReason *string
	if err := row.Scan(&o.ID, &o.OrderNo, &o.UserID, &o.OrderType, &o.ProductID, &o.Amount, &o.PaymentMethod, &o.Status, &txnID, &o.CreatedAt, &o.PaidAt, &o.CancelledAt, &cancelReason); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if txnID != nil {
		o.TransactionID = *txnID
	}
	if cancelReason != nil {
		o.CancelReason = *cancelReason
	}
	return o, nil
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$12,NULLIF($13,''));`

	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.OrderNo, o.UserID, o.OrderType, o.ProductID, o.Amount, o.PaymentMethod, o.Status, o.TransactionID, o.CreatedAt, o.PaidAt, o.CancelledAt, o.CancelReason)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByOrderNo(ctx context.Context, tx repository.Tx, orderNo string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_no=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderNo)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// MarkPaid transitions pending -> paid only. transaction_id is written once and
// never overwritten; the WHERE clause is the state-machine guard.
func (r *orderRepo) MarkPaid(ctx context.Context, tx repository.Tx, orderNo, transactionID string, paidAt time.Time) (bool, error) {
	const q = `
UPDATE orders
   SET status='paid', transaction_id=$2, paid_at=$3
 WHERE order_no=$1 AND status='pending' AND transaction_id IS NULL;`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderNo, transactionID, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkCancelled(ctx context.Context, tx repository.Tx, orderNo string, status model.OrderStatus, reason string, at time.Time) (bool, error) {
	if status != model.OrderStatusCancelled && status != model.OrderStatusExpired {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE orders
   SET status=$2, cancel_reason=$3, cancelled_at=$4
 WHERE order_no=$1 AND status='pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderNo, status, reason, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkRefunded(ctx context.Context, tx repository.Tx, orderNo, reason string, at time.Time) (bool, error) {
	const q = `
UPDATE orders
   SET status='refunded', cancel_reason=$2, cancelled_at=$3
 WHERE order_no=$1 AND status='paid';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderNo, reason, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) ExpirePendingBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, reason string, at time.Time) (int, error) {
	const q = `
UPDATE orders
   SET status='expired', cancel_reason=$1, cancelled_at=$2
 WHERE status='pending' AND created_at <= $3;`

	cmd, err := execSQL(ctx, r.pool, tx, q, reason, at, cutoff)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

func (r *orderRepo) ListPendingCreatedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
