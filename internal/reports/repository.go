package reports

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySales is one row of the sales summary projection maintained by the
// worker from order placed events.
type MonthlySales struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	OrdersCount int             `json:"orders_count"`
	Total       decimal.Decimal `json:"total"`
}

type SummaryRepository struct {
	db *sql.DB
}

func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// RecordPlacedOrder folds one placed order into its month's summary row.
func (r *SummaryRepository) RecordPlacedOrder(ctx context.Context, placedAt time.Time, total decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sales_summary (year, month, orders_count, total)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (year, month) DO UPDATE
		SET orders_count = sales_summary.orders_count + 1,
		    total = sales_summary.total + EXCLUDED.total
	`, placedAt.Year(), int(placedAt.Month()), total)
	return err
}

func (r *SummaryRepository) SalesByMonth(ctx context.Context, year int) ([]MonthlySales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year, month, orders_count, total
		FROM sales_summary
		WHERE year = $1
		ORDER BY month
	`, year)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var summary []MonthlySales
	for rows.Next() {
		var m MonthlySales
		if err := rows.Scan(&m.Year, &m.Month, &m.OrdersCount, &m.Total); err != nil {
			return nil, err
		}
		summary = append(summary, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summary, nil
}
