package cart

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrForbidden       = errors.New("not allowed to modify this cart")
)

// InsufficientStockError rejects an add whose requested quantity (alone, or
// merged with the quantity already in the cart) exceeds the product's stock.
type InsufficientStockError struct {
	Available int
	Merged    bool
}

func (e *InsufficientStockError) Error() string {
	if e.Merged {
		return "quantity exceeds available stock"
	}
	return fmt.Sprintf("not enough stock for requested quantity (available %d)", e.Available)
}
