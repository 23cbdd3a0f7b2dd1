package cart

import (
	"errors"

	"github.com/dmarinescu-dev/storefront-backend/internal/order"
	"github.com/dmarinescu-dev/storefront-backend/internal/product"
)

// Service owns the active cart of each user: get-or-create, add/merge a line
// item, remove a line item. It never mutates product stock; stock is only
// checked here and decremented at checkout.
type Service struct {
	orders   order.Repository
	products product.Repository
}

func NewService(orders order.Repository, products product.Repository) *Service {
	return &Service{orders: orders, products: products}
}

// GetOrCreateCart returns the user's active cart, creating an empty one when
// none exists. Losing a concurrent creation race falls back to fetching the
// winner's cart, so exactly one CART order per user survives.
func (s *Service) GetOrCreateCart(userID int) (order.Order, error) {
	c, err := s.getOrCreateBare(userID)
	if err != nil {
		return order.Order{}, err
	}
	return s.attachProducts(c)
}

// AddItem merges quantity into an existing line for the product or creates a
// new line with the product's current price. The price of an existing line is
// never refreshed. The merge and the total recomputation run in one
// transaction with the cart row locked.
func (s *Service) AddItem(userID, productID, quantity int) (order.Order, error) {
	if quantity < 1 {
		return order.Order{}, ErrInvalidQuantity
	}

	c, err := s.getOrCreateBare(userID)
	if err != nil {
		return order.Order{}, err
	}

	p, err := s.products.GetByID(productID)
	if err != nil {
		return order.Order{}, err
	}
	if p.Stock == 0 {
		return order.Order{}, ErrOutOfStock
	}
	if quantity > p.Stock {
		return order.Order{}, &InsufficientStockError{Available: p.Stock}
	}

	err = s.orders.InTx(func(tx order.Repository) error {
		if err := tx.LockOrder(c.ID); err != nil {
			return err
		}
		// re-read under the lock: a checkout may have finalized this cart
		// between the lookup above and the lock
		current, err := tx.FindByID(c.ID)
		if err != nil {
			return err
		}
		if current.Status != order.StatusCart {
			return order.ErrConflict
		}
		existing, err := tx.FindItemByOrderAndProduct(c.ID, productID)
		switch {
		case err == nil:
			merged := existing.Quantity + quantity
			if merged > p.Stock {
				return &InsufficientStockError{Available: p.Stock, Merged: true}
			}
			if err := tx.UpdateItemQuantity(existing.ID, merged); err != nil {
				return err
			}
		case errors.Is(err, order.ErrItemNotFound):
			if _, err := tx.CreateItem(order.Item{
				OrderID:   c.ID,
				ProductID: productID,
				Quantity:  quantity,
				Price:     p.Price,
			}); err != nil {
				return err
			}
		default:
			return err
		}
		return s.retotal(tx, c.ID)
	})
	if err != nil {
		return order.Order{}, err
	}
	return s.refreshed(c.ID)
}

// RemoveItem deletes a line item of the caller's active cart and recomputes
// the total. A stale item id pointing at another user's order or at a
// finalized order fails with ErrForbidden.
func (s *Service) RemoveItem(userID, itemID int) (order.Order, error) {
	item, err := s.orders.FindItemByID(itemID)
	if err != nil {
		return order.Order{}, err
	}
	owner, err := s.orders.FindByID(item.OrderID)
	if err != nil {
		return order.Order{}, err
	}
	if owner.Status != order.StatusCart || owner.UserID != userID {
		return order.Order{}, ErrForbidden
	}

	err = s.orders.InTx(func(tx order.Repository) error {
		if err := tx.LockOrder(owner.ID); err != nil {
			return err
		}
		// the pre-check above ran without the lock; repeat it so a cart
		// finalized in the meantime stays immutable
		current, err := tx.FindByID(owner.ID)
		if err != nil {
			return err
		}
		if current.Status != order.StatusCart || current.UserID != userID {
			return ErrForbidden
		}
		if err := tx.DeleteItem(itemID); err != nil {
			return err
		}
		return s.retotal(tx, owner.ID)
	})
	if err != nil {
		return order.Order{}, err
	}
	return s.refreshed(owner.ID)
}

func (s *Service) getOrCreateBare(userID int) (order.Order, error) {
	c, err := s.orders.FindActiveCartByUser(userID)
	if errors.Is(err, order.ErrNotFound) {
		c, err = s.orders.CreateOrder(order.Order{UserID: userID, Status: order.StatusCart})
		if errors.Is(err, order.ErrDuplicateCart) {
			c, err = s.orders.FindActiveCartByUser(userID)
		}
	}
	return c, err
}

// retotal recomputes the order total from its items, keeping the current
// status. Callers hold the order lock and have verified it is still a cart.
func (s *Service) retotal(tx order.Repository, orderID int) error {
	o, err := tx.FindByID(orderID)
	if err != nil {
		return err
	}
	return tx.UpdateOrder(orderID, o.Status, order.ItemsTotal(o.Items))
}

func (s *Service) refreshed(orderID int) (order.Order, error) {
	c, err := s.orders.FindByID(orderID)
	if err != nil {
		return order.Order{}, err
	}
	return s.attachProducts(c)
}

func (s *Service) attachProducts(c order.Order) (order.Order, error) {
	if len(c.Items) == 0 {
		if c.Items == nil {
			c.Items = []order.Item{}
		}
		return c, nil
	}
	ids := make([]int, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.ListByIDs(ids)
	if err != nil {
		return order.Order{}, err
	}
	byID := make(map[int]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i := range c.Items {
		if p, ok := byID[c.Items[i].ProductID]; ok {
			cp := p
			c.Items[i].Product = &cp
		}
	}
	return c, nil
}
