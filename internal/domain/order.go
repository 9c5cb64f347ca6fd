package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus classifies how much of an order has been paid.
// It is always derived from (amount_paid, total), never set directly.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusPaid          PaymentStatus = "paid"
)

// PaymentStatusFor derives the payment status from the amount paid so far
// and the order total. amountPaid is expected to be in [0, total].
func PaymentStatusFor(amountPaid, total decimal.Decimal) PaymentStatus {
	switch {
	case amountPaid.IsZero():
		return PaymentStatusPending
	case amountPaid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartiallyPaid
	}
}

type OrderLine struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Product   string          `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// Total is quantity × unit price.
func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Profit is the line total minus quantity × unit cost at time of sale.
func (l OrderLine) Profit() decimal.Decimal {
	cost := l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity)))
	return l.Total().Sub(cost)
}

// Order is a sales order header together with its lines. Lines are written
// once, during placement, and never mutated afterwards; AmountPaid and
// PaymentStatus only change through payment registration.
type Order struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Customer      string          `json:"customer"`
	TaxID         string          `json:"tax_id,omitempty"`
	Address       string          `json:"address,omitempty"`
	Lines         []OrderLine     `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LinesTotal sums the line totals. After placement it equals the persisted
// header total; the placement workflow writes both in one transaction.
func (o *Order) LinesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// TotalCost sums quantity × unit cost over the lines.
func (o *Order) TotalCost() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// TotalProfit is the header total minus the total cost.
func (o *Order) TotalProfit() decimal.Decimal {
	return o.Total.Sub(o.TotalCost())
}

// RemainingBalance is how much of the total is still unpaid.
func (o *Order) RemainingBalance() decimal.Decimal {
	return o.Total.Sub(o.AmountPaid)
}

// FormatOrderNumber builds the human-readable order number from the
// creation year and the order's row id, e.g. OC-2025-0042. The sequence
// is the global row id, so it does not reset at year boundaries.
func FormatOrderNumber(year int, orderID int64) string {
	return fmt.Sprintf("OC-%d-%04d", year, orderID)
}
