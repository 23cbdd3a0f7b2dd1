package order

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

var orderCols = []string{"id", "user_id", "status", "total", "created_at", "updated_at"}

var itemCols = []string{"id", "order_id", "product_id", "quantity", "price", "created_at", "updated_at"}

func TestPostgresFindActiveCartByUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM orders WHERE user_id").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(3, 7, "CART", "19.98", "2026-08-01T10:00:00Z", "2026-08-01T10:05:00Z"))
	mock.ExpectQuery("FROM order_items WHERE order_id").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(11, 3, 5, 2, "9.99", "2026-08-01T10:05:00Z", "2026-08-01T10:05:00Z"))

	cart, err := repo.FindActiveCartByUser(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.ID != 3 || cart.Status != StatusCart {
		t.Fatalf("unexpected cart %+v", cart)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != 5 || cart.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", cart.Items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresFindActiveCartByUser_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM orders WHERE user_id").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(orderCols))

	if _, err := repo.FindActiveCartByUser(7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresCreateOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(7, "CART", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

	o, err := repo.CreateOrder(Order{UserID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ID != 4 || o.Status != StatusCart || o.Items == nil {
		t.Fatalf("unexpected order %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresCreateOrder_DuplicateCart(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(7, "CART", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_one_cart_per_user"})

	if _, err := repo.CreateOrder(Order{UserID: 7}); !errors.Is(err, ErrDuplicateCart) {
		t.Fatalf("expected ErrDuplicateCart, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresCreateItem_DuplicateLine(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(3, 5, 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "order_items_order_product"})

	_, err := repo.CreateItem(Item{OrderID: 3, ProductID: 5, Quantity: 2})
	if !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresUpdateOrder_DuplicateCart(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("CART", sqlmock.AnyArg(), sqlmock.AnyArg(), 4).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_one_cart_per_user"})

	err := repo.UpdateOrder(4, StatusCart, decimal.Zero)
	if !errors.Is(err, ErrDuplicateCart) {
		t.Fatalf("expected ErrDuplicateCart, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresUpdateItemQuantity_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE order_items SET quantity").
		WithArgs(5, sqlmock.AnyArg(), 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateItemQuantity(99, 5); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresDeleteOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM order_items WHERE order_id").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM orders WHERE id").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.DeleteOrder(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresDeleteOrder_NotFoundRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM order_items WHERE order_id").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM orders WHERE id").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.DeleteOrder(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresInTx_RollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.InTx(func(tx Repository) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresList_BatchLoadsItems(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM orders ORDER BY id").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(1, 7, "PAID", "19.98", "2026-08-01T10:00:00Z", "2026-08-01T10:05:00Z").
			AddRow(2, 7, "CART", "0", "2026-08-01T10:05:00Z", "2026-08-01T10:05:00Z"))
	mock.ExpectQuery("FROM order_items").
		WithArgs(pq.Array([]int{1, 2})).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(11, 1, 5, 2, "9.99", "2026-08-01T10:00:00Z", "2026-08-01T10:00:00Z"))

	orders, err := repo.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if len(orders[0].Items) != 1 || orders[0].Items[0].ID != 11 {
		t.Fatalf("expected item on order 1, got %+v", orders[0].Items)
	}
	if len(orders[1].Items) != 0 {
		t.Fatalf("expected no items on order 2, got %+v", orders[1].Items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
