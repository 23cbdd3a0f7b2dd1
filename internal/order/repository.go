package order

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrItemNotFound  = errors.New("order item not found")
	ErrDuplicateCart = errors.New("user already has an active cart")
	ErrDuplicateItem = errors.New("order already has an item for this product")
	// ErrConflict reports a concurrent modification detected inside a
	// transaction (e.g. two checkouts racing on the same cart).
	ErrConflict = errors.New("order was modified concurrently")
)

// Repository is the order store contract. Orders returned by the Find/List
// methods carry their items; products are attached by the services.
type Repository interface {
	// FindActiveCartByUser returns the single order in CART status owned by
	// userID, or ErrNotFound.
	FindActiveCartByUser(userID int) (Order, error)
	FindByID(id int) (Order, error)
	List() ([]Order, error)
	ListByUser(userID int) ([]Order, error)

	FindItemByID(id int) (Item, error)
	FindItemByOrderAndProduct(orderID, productID int) (Item, error)
	ListItemsByOrder(orderID int) ([]Item, error)

	// CreateOrder inserts the order. Creating a second CART order for the
	// same user fails with ErrDuplicateCart.
	CreateOrder(o Order) (Order, error)
	CreateItem(it Item) (Item, error)
	UpdateItemQuantity(itemID, quantity int) error
	UpdateOrder(orderID int, status Status, total decimal.Decimal) error
	DeleteItem(itemID int) error
	// DeleteOrder removes the order and all of its items as one atomic unit.
	DeleteOrder(orderID int) error

	// LockOrder takes an exclusive lock on the order row for the duration of
	// the surrounding transaction, serializing mutations of one cart.
	LockOrder(orderID int) error
	// InTx runs fn against a transaction-scoped view of the repository. fn
	// returning an error rolls back every write made through tx.
	InTx(fn func(tx Repository) error) error
}
