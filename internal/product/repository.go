package product

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("product not found")

// Repository provides read access to the catalog plus the single stock write
// used by checkout.
type Repository interface {
	List() ([]Product, error)
	GetByID(id int) (Product, error)
	// ListByIDs returns the products whose id is present in ids, ordered the
	// same way as the ids argument. An empty ids slice returns an empty slice
	// without touching the store.
	ListByIDs(ids []int) ([]Product, error)
	// UpdateStock replaces the stock counter. Only checkout may call it.
	UpdateStock(id int, newStock int) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[int]Product
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{storage: make(map[int]Product, len(seed))}
	for _, p := range seed {
		r.storage[p.ID] = p
	}
	return r
}

func (r *InMemoryRepository) List() ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(r.storage))
	for _, p := range r.storage {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetByID(id int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) ListByIDs(ids []int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.storage[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Replace swaps a seeded product wholesale. Test helper.
func (r *InMemoryRepository) Replace(p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[p.ID]; !ok {
		return ErrNotFound
	}
	r.storage[p.ID] = p
	return nil
}

func (r *InMemoryRepository) UpdateStock(id int, newStock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock = newStock
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	r.storage[id] = p
	return nil
}
