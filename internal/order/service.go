package order

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidStatus = errors.New("order status is not valid")

// Service provides the generic order administration surface. Cart mutations
// and checkout live in their own packages and go through the same Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() ([]Order, error) {
	return s.repo.List()
}

func (s *Service) ListByUser(userID int) ([]Order, error) {
	return s.repo.ListByUser(userID)
}

func (s *Service) Get(id int) (Order, error) {
	return s.repo.FindByID(id)
}

func (s *Service) Create(userID int, status Status, total decimal.Decimal) (Order, error) {
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return Order{}, ErrInvalidStatus
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	return s.repo.CreateOrder(Order{UserID: userID, Status: status, Total: total})
}

// Update changes status and/or total; nil leaves the field as is.
func (s *Service) Update(id int, status *Status, total *decimal.Decimal) (Order, error) {
	existing, err := s.repo.FindByID(id)
	if err != nil {
		return Order{}, err
	}
	newStatus := existing.Status
	if status != nil {
		if !status.Valid() {
			return Order{}, ErrInvalidStatus
		}
		newStatus = *status
	}
	newTotal := existing.Total
	if total != nil {
		newTotal = *total
	}
	if err := s.repo.UpdateOrder(id, newStatus, newTotal); err != nil {
		return Order{}, err
	}
	return s.repo.FindByID(id)
}

func (s *Service) Delete(id int) error {
	return s.repo.DeleteOrder(id)
}
