package product

import "github.com/shopspring/decimal"

// Product is owned by the catalog subsystem. The order flow only reads price
// and stock; stock is written exclusively inside checkout.
type Product struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt string          `json:"createdAt,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}
