package checkout

import (
	"sync"

	"github.com/dmarinescu-dev/storefront-backend/internal/order"
	"github.com/dmarinescu-dev/storefront-backend/internal/product"
)

// InMemoryFinalizer is used for tests and local scenarios. Its mutex
// serializes every finalize, and writes are ordered so a failure at any step
// leaves both stores untouched: stock is verified first, the order flip and
// new-cart insert run inside the order store's transaction, and decrements
// are applied last, after nothing can fail.
type InMemoryFinalizer struct {
	mu       sync.Mutex
	orders   order.Repository
	products product.Repository
}

func NewInMemoryFinalizer(orders order.Repository, products product.Repository) *InMemoryFinalizer {
	return &InMemoryFinalizer{orders: orders, products: products}
}

func (f *InMemoryFinalizer) Finalize(cart order.Order) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	newStocks := make(map[int]int, len(cart.Items))
	for _, it := range cart.Items {
		p, err := f.products.GetByID(it.ProductID)
		if err != nil {
			return 0, &ProductMissingError{ProductID: it.ProductID}
		}
		if p.Stock < it.Quantity {
			return 0, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: it.Quantity,
			}
		}
		newStocks[it.ProductID] = p.Stock - it.Quantity
	}

	var newCartID int
	err := f.orders.InTx(func(tx order.Repository) error {
		current, err := tx.FindByID(cart.ID)
		if err != nil {
			return err
		}
		if current.Status != order.StatusCart {
			return order.ErrConflict
		}
		if err := tx.UpdateOrder(cart.ID, order.StatusPaid, current.Total); err != nil {
			return err
		}
		newCart, err := tx.CreateOrder(order.Order{UserID: cart.UserID, Status: order.StatusCart})
		if err != nil {
			return err
		}
		newCartID = newCart.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	for productID, stock := range newStocks {
		if err := f.products.UpdateStock(productID, stock); err != nil {
			return 0, err
		}
	}
	return newCartID, nil
}
