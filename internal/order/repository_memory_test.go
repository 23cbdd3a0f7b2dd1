package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestInMemoryInTx_RollsBackOnError(t *testing.T) {
	repo := NewInMemoryRepository()
	cart, err := repo.CreateOrder(Order{UserID: 7})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err = repo.InTx(func(tx Repository) error {
		if _, err := tx.CreateItem(Item{OrderID: cart.ID, ProductID: 1, Quantity: 2}); err != nil {
			return err
		}
		if err := tx.UpdateOrder(cart.ID, StatusCart, decimal.NewFromInt(10)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	after, err := repo.FindByID(cart.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(after.Items) != 0 {
		t.Fatalf("rollback must drop the item, got %+v", after.Items)
	}
	if !after.Total.IsZero() {
		t.Fatalf("rollback must restore the total, got %s", after.Total)
	}
}

func TestInMemoryUpdateOrder_KeepsOneCartPerUser(t *testing.T) {
	repo := NewInMemoryRepository()
	cart, err := repo.CreateOrder(Order{UserID: 7})
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	pending, err := repo.CreateOrder(Order{UserID: 7, Status: StatusPending})
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}

	// flipping a second order to CART violates the same constraint the
	// partial unique index enforces in Postgres
	err = repo.UpdateOrder(pending.ID, StatusCart, decimal.Zero)
	if !errors.Is(err, ErrDuplicateCart) {
		t.Fatalf("expected ErrDuplicateCart, got %v", err)
	}
	after, err := repo.FindByID(pending.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if after.Status != StatusPending {
		t.Fatalf("rejected update changed status to %s", after.Status)
	}

	// re-writing the cart itself (the retotal path) stays allowed
	if err := repo.UpdateOrder(cart.ID, StatusCart, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("cart retotal: %v", err)
	}
	// and so does releasing the slot then taking it
	if err := repo.UpdateOrder(cart.ID, StatusPaid, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("flip to PAID: %v", err)
	}
	if err := repo.UpdateOrder(pending.ID, StatusCart, decimal.Zero); err != nil {
		t.Fatalf("take freed slot: %v", err)
	}
}

func TestInMemoryUniqueConstraints(t *testing.T) {
	repo := NewInMemoryRepository()
	cart, err := repo.CreateOrder(Order{UserID: 7})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.CreateOrder(Order{UserID: 7}); !errors.Is(err, ErrDuplicateCart) {
		t.Fatalf("expected ErrDuplicateCart, got %v", err)
	}
	// a non-cart order for the same user is fine
	if _, err := repo.CreateOrder(Order{UserID: 7, Status: StatusPending}); err != nil {
		t.Fatalf("pending order: %v", err)
	}

	if _, err := repo.CreateItem(Item{OrderID: cart.ID, ProductID: 1, Quantity: 1}); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := repo.CreateItem(Item{OrderID: cart.ID, ProductID: 1, Quantity: 1}); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if _, err := repo.CreateItem(Item{OrderID: 999, ProductID: 1, Quantity: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown order, got %v", err)
	}
}
