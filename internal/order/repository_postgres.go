package order

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so the same query code
// serves transactional and non-transactional paths.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

type PostgresRepository struct {
	db *sql.DB
	q  queryer
}

const (
	orderColumns = `id, user_id, status, total, created_at, updated_at`

	itemColumns = `id, order_id, product_id, quantity, price, created_at, updated_at`

	itemsByOrdersQuery = `
        SELECT id, order_id, product_id, quantity, price, created_at, updated_at
        FROM order_items
        WHERE order_id = ANY($1::int[])
        ORDER BY id
    `
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, q: db}
}

func (r *PostgresRepository) InTx(fn func(tx Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		// already transaction-scoped
		return fn(r)
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(&PostgresRepository{db: r.db, q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *PostgresRepository) FindActiveCartByUser(userID int) (Order, error) {
	return r.scanOrder(r.q.QueryRow(
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND status = 'CART'`, userID))
}

func (r *PostgresRepository) FindByID(id int) (Order, error) {
	return r.scanOrder(r.q.QueryRow(
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *PostgresRepository) List() ([]Order, error) {
	rows, err := r.q.Query(`SELECT ` + orderColumns + ` FROM orders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return r.collectOrders(rows)
}

func (r *PostgresRepository) ListByUser(userID int) ([]Order, error) {
	rows, err := r.q.Query(`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return r.collectOrders(rows)
}

func (r *PostgresRepository) FindItemByID(id int) (Item, error) {
	return scanItem(r.q.QueryRow(
		`SELECT `+itemColumns+` FROM order_items WHERE id = $1`, id))
}

func (r *PostgresRepository) FindItemByOrderAndProduct(orderID, productID int) (Item, error) {
	return scanItem(r.q.QueryRow(
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 AND product_id = $2`, orderID, productID))
}

func (r *PostgresRepository) ListItemsByOrder(orderID int) ([]Item, error) {
	rows, err := r.q.Query(`SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) CreateOrder(o Order) (Order, error) {
	if o.Status == "" {
		o.Status = StatusCart
	}
	now := time.Now().UTC().Format(time.RFC3339)
	err := r.q.QueryRow(
		`INSERT INTO orders (user_id, status, total, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $4)
         RETURNING id`,
		o.UserID, o.Status, o.Total, now).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Order{}, ErrDuplicateCart
		}
		return Order{}, err
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Items = []Item{}
	return o, nil
}

func (r *PostgresRepository) CreateItem(it Item) (Item, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	err := r.q.QueryRow(
		`INSERT INTO order_items (order_id, product_id, quantity, price, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $5)
         RETURNING id`,
		it.OrderID, it.ProductID, it.Quantity, it.Price, now).Scan(&it.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Item{}, ErrDuplicateItem
		}
		return Item{}, err
	}
	it.CreatedAt = now
	it.UpdatedAt = now
	return it, nil
}

func (r *PostgresRepository) UpdateItemQuantity(itemID, quantity int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.q.Exec(`UPDATE order_items SET quantity = $1, updated_at = $2 WHERE id = $3`, quantity, now, itemID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateOrder(orderID int, status Status, total decimal.Decimal) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.q.Exec(`UPDATE orders SET status = $1, total = $2, updated_at = $3 WHERE id = $4`, status, total, now, orderID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCart
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteItem(itemID int) error {
	res, err := r.q.Exec(`DELETE FROM order_items WHERE id = $1`, itemID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// DeleteOrder removes the order and its items in one transaction. The
// two-statement sequence is never visible half-applied.
func (r *PostgresRepository) DeleteOrder(orderID int) error {
	return r.InTx(func(tx Repository) error {
		p := tx.(*PostgresRepository)
		if _, err := p.q.Exec(`DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
			return err
		}
		res, err := p.q.Exec(`DELETE FROM orders WHERE id = $1`, orderID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// LockOrder blocks concurrent mutations of the same cart until the
// surrounding transaction commits.
func (r *PostgresRepository) LockOrder(orderID int) error {
	var id int
	err := r.q.QueryRow(`SELECT id FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepository) scanOrder(row *sql.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	items, err := r.ListItemsByOrder(o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *PostgresRepository) collectOrders(rows *sql.Rows) ([]Order, error) {
	defer rows.Close()

	orders := make([]Order, 0)
	ids := make([]int, 0)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Items = []Item{}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	itemRows, err := r.q.Query(itemsByOrdersQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	byOrder := make(map[int][]Item, len(ids))
	for itemRows.Next() {
		var it Item
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if items, ok := byOrder[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}
	return orders, nil
}

func scanItem(row *sql.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return it, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
