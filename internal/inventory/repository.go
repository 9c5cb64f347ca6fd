package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// InsufficientStockError reports a stock check that failed during an order
// placement, with enough detail to tell the caller which product is short
// and by how much.
type InsufficientStockError struct {
	ProductID int64
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.Product, e.Available, e.Requested)
}

// Execer is the subset of *sql.DB and *sql.Tx the stock ledger needs, so
// decrements can run inside a caller-owned transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, stock, cost, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Name, p.Stock, p.Cost, p.Description).Scan(&p.ID)
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, stock, cost, description
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Stock, &p.Cost, &p.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return p, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, stock, cost, description
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.Cost, &p.Description); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// Update changes name, cost and description. Stock is deliberately not
// updatable here; it only moves through Increase and Decrease.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET name = $2, cost = $3, description = $4
		WHERE id = $1
	`, p.ID, p.Name, p.Cost, p.Description)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Increase unconditionally adds quantity to a product's stock (restocking).
func (r *ProductRepository) Increase(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("increase quantity must be positive, got %d", quantity)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Decrease subtracts quantity from a product's stock if enough is
// available. The conditional update serializes concurrent decrements on the
// same product row, so stock can never go below zero. It runs against the
// caller's Execer so the order placement transaction can own it.
func Decrease(ctx context.Context, db Execer, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("decrease quantity must be positive, got %d", quantity)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var name string
		var available int
		err := db.QueryRowContext(ctx, `
			SELECT name, stock FROM products WHERE id = $1
		`, productID).Scan(&name, &available)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrProductNotFound
			}
			return err
		}
		return &InsufficientStockError{
			ProductID: productID,
			Product:   name,
			Available: available,
			Requested: quantity,
		}
	}

	return nil
}
