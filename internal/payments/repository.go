package payments

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive and not exceed the remaining balance")
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Register adds a payment to an order and rederives its payment status.
// The order row is locked for the duration of the read-modify-write, so
// concurrent payments on the same order always validate against a fresh
// balance and amount_paid can never exceed the total.
func (r *PaymentRepository) Register(ctx context.Context, orderID int64, amount decimal.Decimal) (*domain.Order, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPaymentAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var total, paid decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT total, amount_paid FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&total, &paid)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if amount.GreaterThan(total.Sub(paid)) {
		return nil, ErrInvalidPaymentAmount
	}

	paid = paid.Add(amount)
	status := domain.PaymentStatusFor(paid, total)

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET amount_paid = $2, payment_status = $3
		WHERE id = $1
	`, orderID, paid, status)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.Order{
		ID:            orderID,
		Total:         total,
		AmountPaid:    paid,
		PaymentStatus: status,
	}, nil
}
