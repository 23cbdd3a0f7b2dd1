package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrNoCart    = errors.New("no cart found for this user")
	ErrEmptyCart = errors.New("cart is empty")
)

// ProductMissingError reports a cart line whose product no longer resolves.
type ProductMissingError struct {
	ProductID int
}

func (e *ProductMissingError) Error() string {
	return fmt.Sprintf("product with id %d not found", e.ProductID)
}

// InsufficientStockError reports the first cart line whose quantity exceeds
// the product's current stock.
type InsufficientStockError struct {
	ProductID int
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s (available %d, requested %d)", e.Name, e.Available, e.Requested)
}
