package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is published after an order placement commits. Consumers
// use it to maintain read-side projections such as the monthly sales
// summary; it is not part of the placement transaction.
type OrderPlacedEvent struct {
	EventID     string          `json:"event_id"`
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Customer    string          `json:"customer"`
	Total       decimal.Decimal `json:"total"`
	PlacedAt    time.Time       `json:"placed_at"`
}
