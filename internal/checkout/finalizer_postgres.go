package checkout

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmarinescu-dev/storefront-backend/internal/order"
)

// PostgresFinalizer owns the checkout transaction. The stock decrement is
// conditional (stock >= quantity), so a concurrent checkout that drained a
// product aborts this one instead of overselling.
type PostgresFinalizer struct {
	db *sql.DB
}

func NewPostgresFinalizer(db *sql.DB) *PostgresFinalizer {
	return &PostgresFinalizer{db: db}
}

func (f *PostgresFinalizer) Finalize(cart order.Order) (int, error) {
	tx, err := f.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	for _, it := range cart.Items {
		res, err := tx.Exec(
			`UPDATE products SET stock = stock - $1, updated_at = $2 WHERE id = $3 AND stock >= $1`,
			it.Quantity, now, it.ProductID)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			var name string
			var stock int
			err := tx.QueryRow(`SELECT name, stock FROM products WHERE id = $1`, it.ProductID).Scan(&name, &stock)
			if err == sql.ErrNoRows {
				return 0, &ProductMissingError{ProductID: it.ProductID}
			}
			if err != nil {
				return 0, err
			}
			return 0, &InsufficientStockError{
				ProductID: it.ProductID,
				Name:      name,
				Available: stock,
				Requested: it.Quantity,
			}
		}
	}

	// guard on CART status: a racing checkout that already flipped the order
	// makes this a conflict, not a double payment
	res, err := tx.Exec(
		`UPDATE orders SET status = 'PAID', updated_at = $1 WHERE id = $2 AND status = 'CART'`,
		now, cart.ID)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, order.ErrConflict
	}

	var newCartID int
	err = tx.QueryRow(
		`INSERT INTO orders (user_id, status, total, created_at, updated_at)
         VALUES ($1, 'CART', 0, $2, $2)
         RETURNING id`,
		cart.UserID, now).Scan(&newCartID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, order.ErrConflict
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newCartID, nil
}
