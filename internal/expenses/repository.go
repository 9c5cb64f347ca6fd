package expenses

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
)

var ErrExpenseNotFound = errors.New("expense not found")

type ExpenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *domain.Expense) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO expenses (date, category, description, amount, project)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.Date, e.Category, e.Description, e.Amount, e.Project).Scan(&e.ID)
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*domain.Expense, error) {
	e := &domain.Expense{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, date, category, description, amount, project
		FROM expenses
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Date, &e.Category, &e.Description, &e.Amount, &e.Project)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return e, nil
}

func (r *ExpenseRepository) List(ctx context.Context) ([]domain.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, category, description, amount, project
		FROM expenses
		ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var expenses []domain.Expense
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Category, &e.Description, &e.Amount, &e.Project); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expenses, nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrExpenseNotFound
	}

	return nil
}

// MonthlyTotals sums expenses per calendar month of the given year, for the
// dashboard. Months without expenses are absent from the map.
func (r *ExpenseRepository) MonthlyTotals(ctx context.Context, year int) (map[int]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT EXTRACT(MONTH FROM date)::int AS month, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE EXTRACT(YEAR FROM date)::int = $1
		GROUP BY month
	`, year)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	totals := make(map[int]decimal.Decimal)
	for rows.Next() {
		var month int
		var total decimal.Decimal
		if err := rows.Scan(&month, &total); err != nil {
			return nil, err
		}
		totals[month] = total
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return totals, nil
}
