package order

import (
	"github.com/shopspring/decimal"

	"github.com/dmarinescu-dev/storefront-backend/internal/product"
)

// Status is the lifecycle state of an order. An order in StatusCart is the
// user's active cart; StatusPaid is terminal for cart purposes.
type Status string

const (
	StatusCart      Status = "CART"
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCart, StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Order represents a purchase made by a user. At most one order per user is
// in CART status at any instant.
type Order struct {
	ID        int             `json:"id"`
	UserID    int             `json:"userId"`
	Status    Status          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Items     []Item          `json:"items"`
	CreatedAt string          `json:"createdAt,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

// Item is a line of an order. Price is the unit price captured when the item
// was first added and is never refreshed on later quantity merges.
type Item struct {
	ID        int              `json:"id"`
	OrderID   int              `json:"orderId"`
	ProductID int              `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Product   *product.Product `json:"product,omitempty"`
	CreatedAt string           `json:"createdAt,omitempty"`
	UpdatedAt string           `json:"updatedAt,omitempty"`
}

// ItemsTotal sums quantity × price over the given items.
func ItemsTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
