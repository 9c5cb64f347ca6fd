package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPaymentStatusFor(t *testing.T) {
	total := dec("100000")

	assert.Equal(t, PaymentStatusPending, PaymentStatusFor(decimal.Zero, total))
	assert.Equal(t, PaymentStatusPartiallyPaid, PaymentStatusFor(dec("0.01"), total))
	assert.Equal(t, PaymentStatusPartiallyPaid, PaymentStatusFor(dec("99999.99"), total))
	assert.Equal(t, PaymentStatusPaid, PaymentStatusFor(total, total))
}

func TestOrderLineTotals(t *testing.T) {
	line := OrderLine{Quantity: 10, UnitPrice: dec("5000"), UnitCost: dec("3200.50")}

	assert.True(t, line.Total().Equal(dec("50000")), "total = %s", line.Total())
	assert.True(t, line.Profit().Equal(dec("17995.00")), "profit = %s", line.Profit())
}

func TestOrderDerivedTotals(t *testing.T) {
	order := Order{
		Total: dec("53000"),
		Lines: []OrderLine{
			{Quantity: 10, UnitPrice: dec("5000"), UnitCost: dec("3000")},
			{Quantity: 3, UnitPrice: dec("1000"), UnitCost: dec("400")},
		},
	}

	assert.True(t, order.LinesTotal().Equal(dec("53000")))
	assert.True(t, order.TotalCost().Equal(dec("31200")))
	assert.True(t, order.TotalProfit().Equal(dec("21800")))
}

func TestRemainingBalance(t *testing.T) {
	order := Order{Total: dec("100000"), AmountPaid: dec("40000")}
	assert.True(t, order.RemainingBalance().Equal(dec("60000")))
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "OC-2025-0001", FormatOrderNumber(2025, 1))
	assert.Equal(t, "OC-2026-0042", FormatOrderNumber(2026, 42))
	// the sequence is the global row id, so it can outgrow four digits
	assert.Equal(t, "OC-2030-12345", FormatOrderNumber(2030, 12345))
}

func TestSalaryFor(t *testing.T) {
	assert.True(t, SalaryFor(22, dec("25000")).Equal(dec("550000")))
	assert.True(t, SalaryFor(0, dec("25000")).IsZero())
}
