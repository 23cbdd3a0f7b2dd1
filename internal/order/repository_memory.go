package order

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// InMemoryRepository is used for tests and local scenarios. InTx snapshots
// the whole state and restores it when fn fails, so transactional rollback
// behaves like the Postgres implementation.
type InMemoryRepository struct {
	mu sync.Mutex
	st *memState
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{st: &memState{
		orders:    map[int]Order{},
		items:     map[int]Item{},
		nextOrder: 1,
		nextItem:  1,
	}}
}

func (r *InMemoryRepository) FindActiveCartByUser(userID int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.findActiveCartByUser(userID)
}

func (r *InMemoryRepository) FindByID(id int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.findByID(id)
}

func (r *InMemoryRepository) List() ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.list(0), nil
}

func (r *InMemoryRepository) ListByUser(userID int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.list(userID), nil
}

func (r *InMemoryRepository) FindItemByID(id int) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.findItemByID(id)
}

func (r *InMemoryRepository) FindItemByOrderAndProduct(orderID, productID int) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.findItemByOrderAndProduct(orderID, productID)
}

func (r *InMemoryRepository) ListItemsByOrder(orderID int) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.listItemsByOrder(orderID), nil
}

func (r *InMemoryRepository) CreateOrder(o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.createOrder(o)
}

func (r *InMemoryRepository) CreateItem(it Item) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.createItem(it)
}

func (r *InMemoryRepository) UpdateItemQuantity(itemID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.updateItemQuantity(itemID, quantity)
}

func (r *InMemoryRepository) UpdateOrder(orderID int, status Status, total decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.updateOrder(orderID, status, total)
}

func (r *InMemoryRepository) DeleteItem(itemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.deleteItem(itemID)
}

func (r *InMemoryRepository) DeleteOrder(orderID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.deleteOrder(orderID)
}

func (r *InMemoryRepository) LockOrder(orderID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.st.findByID(orderID)
	return err
}

func (r *InMemoryRepository) InTx(fn func(tx Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.st.clone()
	if err := fn(&txView{st: r.st}); err != nil {
		*r.st = *snapshot
		return err
	}
	return nil
}

// txView exposes the state without re-locking; it only exists inside InTx,
// which already holds the repository mutex.
type txView struct {
	st *memState
}

func (t *txView) FindActiveCartByUser(userID int) (Order, error) {
	return t.st.findActiveCartByUser(userID)
}

func (t *txView) FindByID(id int) (Order, error) { return t.st.findByID(id) }

func (t *txView) List() ([]Order, error) { return t.st.list(0), nil }

func (t *txView) ListByUser(userID int) ([]Order, error) { return t.st.list(userID), nil }

func (t *txView) FindItemByID(id int) (Item, error) { return t.st.findItemByID(id) }

func (t *txView) FindItemByOrderAndProduct(orderID, productID int) (Item, error) {
	return t.st.findItemByOrderAndProduct(orderID, productID)
}

func (t *txView) ListItemsByOrder(orderID int) ([]Item, error) {
	return t.st.listItemsByOrder(orderID), nil
}

func (t *txView) CreateOrder(o Order) (Order, error) { return t.st.createOrder(o) }

func (t *txView) CreateItem(it Item) (Item, error) { return t.st.createItem(it) }

func (t *txView) UpdateItemQuantity(itemID, quantity int) error {
	return t.st.updateItemQuantity(itemID, quantity)
}

func (t *txView) UpdateOrder(orderID int, status Status, total decimal.Decimal) error {
	return t.st.updateOrder(orderID, status, total)
}

func (t *txView) DeleteItem(itemID int) error { return t.st.deleteItem(itemID) }

func (t *txView) DeleteOrder(orderID int) error { return t.st.deleteOrder(orderID) }

func (t *txView) LockOrder(orderID int) error {
	_, err := t.st.findByID(orderID)
	return err
}

func (t *txView) InTx(fn func(tx Repository) error) error { return fn(t) }

type memState struct {
	orders    map[int]Order // stored without Items
	items     map[int]Item
	nextOrder int
	nextItem  int
}

func (s *memState) clone() *memState {
	c := &memState{
		orders:    make(map[int]Order, len(s.orders)),
		items:     make(map[int]Item, len(s.items)),
		nextOrder: s.nextOrder,
		nextItem:  s.nextItem,
	}
	for id, o := range s.orders {
		c.orders[id] = o
	}
	for id, it := range s.items {
		c.items[id] = it
	}
	return c
}

func (s *memState) findActiveCartByUser(userID int) (Order, error) {
	for _, o := range s.orders {
		if o.UserID == userID && o.Status == StatusCart {
			return s.withItems(o), nil
		}
	}
	return Order{}, ErrNotFound
}

func (s *memState) findByID(id int) (Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return s.withItems(o), nil
}

func (s *memState) list(userID int) []Order {
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		if userID != 0 && o.UserID != userID {
			continue
		}
		out = append(out, s.withItems(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memState) withItems(o Order) Order {
	o.Items = s.listItemsByOrder(o.ID)
	return o
}

func (s *memState) findItemByID(id int) (Item, error) {
	it, ok := s.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (s *memState) findItemByOrderAndProduct(orderID, productID int) (Item, error) {
	for _, it := range s.items {
		if it.OrderID == orderID && it.ProductID == productID {
			return it, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (s *memState) listItemsByOrder(orderID int) []Item {
	out := make([]Item, 0)
	for _, it := range s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memState) createOrder(o Order) (Order, error) {
	if o.Status == "" {
		o.Status = StatusCart
	}
	if o.Status == StatusCart {
		for _, existing := range s.orders {
			if existing.UserID == o.UserID && existing.Status == StatusCart {
				return Order{}, ErrDuplicateCart
			}
		}
	}
	o.ID = s.nextOrder
	s.nextOrder++
	now := time.Now().UTC().Format(time.RFC3339)
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Items = nil
	s.orders[o.ID] = o
	return s.withItems(o), nil
}

func (s *memState) createItem(it Item) (Item, error) {
	if _, ok := s.orders[it.OrderID]; !ok {
		return Item{}, ErrNotFound
	}
	if _, err := s.findItemByOrderAndProduct(it.OrderID, it.ProductID); err == nil {
		return Item{}, ErrDuplicateItem
	}
	it.ID = s.nextItem
	s.nextItem++
	now := time.Now().UTC().Format(time.RFC3339)
	it.CreatedAt = now
	it.UpdatedAt = now
	it.Product = nil
	s.items[it.ID] = it
	return it, nil
}

func (s *memState) updateItemQuantity(itemID, quantity int) error {
	it, ok := s.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	it.Quantity = quantity
	it.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.items[itemID] = it
	return nil
}

func (s *memState) updateOrder(orderID int, status Status, total decimal.Decimal) error {
	o, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	// mirror the partial unique index: no update may yield a second CART
	// order for the same user
	if status == StatusCart {
		for id, other := range s.orders {
			if id != orderID && other.UserID == o.UserID && other.Status == StatusCart {
				return ErrDuplicateCart
			}
		}
	}
	o.Status = status
	o.Total = total
	o.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.orders[orderID] = o
	return nil
}

func (s *memState) deleteItem(itemID int) error {
	if _, ok := s.items[itemID]; !ok {
		return ErrItemNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *memState) deleteOrder(orderID int) error {
	if _, ok := s.orders[orderID]; !ok {
		return ErrNotFound
	}
	for id, it := range s.items {
		if it.OrderID == orderID {
			delete(s.items, id)
		}
	}
	delete(s.orders, orderID)
	return nil
}
