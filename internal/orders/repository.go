package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
	"github.com/maravena-dev/bloquera-backend/internal/inventory"
)

var ErrNoLineItems = errors.New("order has no valid line items")

// LineRequest is one requested product/quantity/price row. Rows with a
// missing product, non-positive quantity or negative price are treated as
// not submitted, mirroring the blank rows of a multi-row order form.
type LineRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PlaceOrderInput carries the customer fields and requested lines for one
// placement. Name is required; tax id and address are optional.
type PlaceOrderInput struct {
	Customer string
	TaxID    string
	Address  string
	Lines    []LineRequest
}

// validLines drops the blank and invalid rows from a placement request.
func validLines(lines []LineRequest) []LineRequest {
	valid := make([]LineRequest, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == 0 || l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			continue
		}
		valid = append(valid, l)
	}
	return valid
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Place turns a placement request into a durable order, or fails leaving no
// trace. All stock decrements, the header insert, the order number
// assignment and the line inserts run in one transaction: a later line's
// failed stock check rolls back every earlier decrement, and readers never
// observe a half-built order.
func (r *OrderRepository) Place(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	lines := validLines(input.Lines)
	if len(lines) == 0 {
		return nil, ErrNoLineItems
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	order := &domain.Order{
		Customer:      input.Customer,
		TaxID:         input.TaxID,
		Address:       input.Address,
		AmountPaid:    decimal.Zero,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	total := decimal.Zero
	for _, l := range lines {
		// The conditional decrement both checks and reserves stock; two
		// placements racing on the same product serialize on the row here.
		if err := inventory.Decrease(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}

		var name string
		var cost decimal.Decimal
		err := tx.QueryRowContext(ctx, `
			SELECT name, cost FROM products WHERE id = $1
		`, l.ProductID).Scan(&name, &cost)
		if err != nil {
			return nil, err
		}

		line := domain.OrderLine{
			ProductID: l.ProductID,
			Product:   name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			UnitCost:  cost,
		}
		total = total.Add(line.Total())
		order.Lines = append(order.Lines, line)
	}
	order.Total = total

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, customer, tax_id, address, total, amount_paid, payment_status, created_at)
		VALUES ('', $1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, order.Customer, order.TaxID, order.Address, order.Total, order.AmountPaid, order.PaymentStatus, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return nil, err
	}

	number, err := assignOrderNumber(ctx, tx, order.ID, order.CreatedAt.Year())
	if err != nil {
		return nil, err
	}
	order.OrderNumber = number

	for i := range order.Lines {
		line := &order.Lines[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price, unit_cost)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, order.ID, line.ProductID, line.Quantity, line.UnitPrice, line.UnitCost).Scan(&line.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}

// assignOrderNumber synthesizes the human-readable number from the row id
// obtained in the header insert and writes it back. The guard on an empty
// order_number makes re-invocation a no-op, so an already numbered order is
// never renumbered.
func assignOrderNumber(ctx context.Context, tx *sql.Tx, orderID int64, year int) (string, error) {
	number := domain.FormatOrderNumber(year, orderID)

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET order_number = $2
		WHERE id = $1 AND order_number = ''
	`, orderID, number)
	if err != nil {
		return "", err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", err
	}

	if rowsAffected == 0 {
		var existing string
		err := tx.QueryRowContext(ctx, `
			SELECT order_number FROM orders WHERE id = $1
		`, orderID).Scan(&existing)
		if err != nil {
			return "", err
		}
		return existing, nil
	}

	return number, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer, tax_id, address, total, amount_paid, payment_status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.OrderNumber, &order.Customer, &order.TaxID, &order.Address,
		&order.Total, &order.AmountPaid, &order.PaymentStatus, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.product_id, p.name, l.quantity, l.unit_price, l.unit_cost
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1
		ORDER BY l.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Product, &line.Quantity, &line.UnitPrice, &line.UnitCost); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_number, customer, tax_id, address, total, amount_paid, payment_status, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[int64]*domain.Order)
	var orderIDs []int64

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.Customer, &order.TaxID, &order.Address,
			&order.Total, &order.AmountPaid, &order.PaymentStatus, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Lines = []domain.OrderLine{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	lineRows, err := r.db.QueryContext(ctx, `
		SELECT l.order_id, l.id, l.product_id, p.name, l.quantity, l.unit_price, l.unit_cost
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = ANY($1)
		ORDER BY l.id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var orderID int64
		var line domain.OrderLine
		if err := lineRows.Scan(&orderID, &line.ID, &line.ProductID, &line.Product, &line.Quantity, &line.UnitPrice, &line.UnitCost); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Lines = append(order.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}
