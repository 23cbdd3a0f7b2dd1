package checkout

import (
	"errors"

	"github.com/dmarinescu-dev/storefront-backend/internal/order"
	"github.com/dmarinescu-dev/storefront-backend/internal/product"
	"github.com/dmarinescu-dev/storefront-backend/pkg/events"
	"github.com/dmarinescu-dev/storefront-backend/pkg/logging"
)

// Finalizer applies the atomic tail of a checkout: decrement every product's
// stock, flip the cart to PAID, create the user's next empty cart. Either
// every effect commits or none is visible.
type Finalizer interface {
	Finalize(cart order.Order) (newCartID int, err error)
}

// EventPublisher is satisfied by *events.Publisher (nil-safe, may be
// disabled).
type EventPublisher interface {
	Publish(evt events.OrderPaid) error
}

// Service validates the active cart against current stock and hands the
// mutation to the Finalizer. A validation failure leaves cart and stock
// untouched.
type Service struct {
	orders    order.Repository
	products  product.Repository
	finalizer Finalizer
	publisher EventPublisher
}

func NewService(orders order.Repository, products product.Repository, finalizer Finalizer, publisher EventPublisher) *Service {
	return &Service{orders: orders, products: products, finalizer: finalizer, publisher: publisher}
}

// Checkout finalizes the caller's active cart. It returns the now-PAID order
// and the id of the freshly created empty cart.
func (s *Service) Checkout(userID int) (order.Order, int, error) {
	cart, err := s.orders.FindActiveCartByUser(userID)
	if errors.Is(err, order.ErrNotFound) {
		return order.Order{}, 0, ErrNoCart
	}
	if err != nil {
		return order.Order{}, 0, err
	}
	if len(cart.Items) == 0 {
		return order.Order{}, 0, ErrEmptyCart
	}

	byID, err := s.loadProducts(cart.Items)
	if err != nil {
		return order.Order{}, 0, err
	}

	// fail fast on the first offending line, in cart order
	for _, it := range cart.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return order.Order{}, 0, &ProductMissingError{ProductID: it.ProductID}
		}
		if p.Stock < it.Quantity {
			return order.Order{}, 0, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: it.Quantity,
			}
		}
	}

	newCartID, err := s.finalizer.Finalize(cart)
	if err != nil {
		return order.Order{}, 0, err
	}

	paid, err := s.orders.FindByID(cart.ID)
	if err != nil {
		return order.Order{}, 0, err
	}
	for i := range paid.Items {
		if p, ok := byID[paid.Items[i].ProductID]; ok {
			cp := p
			paid.Items[i].Product = &cp
		}
	}

	s.publishPaid(paid, newCartID)
	return paid, newCartID, nil
}

func (s *Service) loadProducts(items []order.Item) (map[int]product.Product, error) {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// publishPaid is best-effort: a broker failure is logged, never surfaced to
// the buyer whose order already committed.
func (s *Service) publishPaid(paid order.Order, newCartID int) {
	if s.publisher == nil {
		return
	}
	evt := events.OrderPaid{
		OrderID:   paid.ID,
		UserID:    paid.UserID,
		Total:     paid.Total,
		NewCartID: newCartID,
	}
	for _, it := range paid.Items {
		evt.Items = append(evt.Items, events.OrderPaidItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	if err := s.publisher.Publish(evt); err != nil {
		logging.Log(logging.Fields{
			Service: "checkout",
			UserID:  paid.UserID,
			OrderID: paid.ID,
			Step:    "publish_order_paid",
			Status:  "error",
			Message: err.Error(),
		})
	}
}
