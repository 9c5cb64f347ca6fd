package domain

import "github.com/shopspring/decimal"

// Product is an inventory item. Stock is a running counter and is only
// mutated through the inventory repository's increase/decrease operations.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Stock       int             `json:"stock"`
	Cost        decimal.Decimal `json:"cost"`
	Description string          `json:"description,omitempty"`
}
