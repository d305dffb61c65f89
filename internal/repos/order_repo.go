package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `id, user_id, session_id, email, full_name, phone, line1, line2, city, state, postal_code, country,
    shipping_method, payment_method, subtotal, shipping_cost, tax, total, status, payment_session_id,
    tracking_number, created_at, updated_at`

// Place writes the order header, its items and the first status event, takes
// the items off stock and empties the cart, all in one transaction. Any line
// without enough stock aborts the whole placement with ErrOutOfStock.
func (r *OrderRepo) Place(ctx context.Context, o *domain.Order, items []domain.OrderItem, cartID, note string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	o.CreatedAt, o.UpdatedAt = now(), now()
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO orders (id, user_id, session_id, email, full_name, phone, line1, line2, city, state, postal_code, country,
		                    shipping_method, payment_method, subtotal, shipping_cost, tax, total, status, payment_session_id,
		                    tracking_number, created_at, updated_at)
		VALUES (:id, :user_id, :session_id, :email, :full_name, :phone, :line1, :line2, :city, :state, :postal_code, :country,
		        :shipping_method, :payment_method, :subtotal, :shipping_cost, :tax, :total, :status, :payment_session_id,
		        :tracking_number, :created_at, :updated_at)
	`, o); err != nil {
		return translate(err)
	}

	for i := range items {
		items[i].OrderID = o.ID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, qty, price)
			VALUES (:order_id, :product_id, :name, :qty, :price)
		`, items[i]); err != nil {
			return translate(err)
		}
		if err := decrementStock(ctx, tx, items[i].ProductID, items[i].Qty); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return err
	}
	if err := insertEvent(ctx, tx, o.ID, o.Status, note, o.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEvent(ctx context.Context, ex sqlx.ExecerContext, orderID, status, note, at string) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO order_status_events (order_id, status, note, created_at) VALUES (?, ?, ?, ?)`,
		orderID, status, note, at)
	return err
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.db.GetContext(ctx, &o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	return o, err
}

func (r *OrderRepo) GetByPaymentSession(ctx context.Context, sessionID string) (domain.Order, error) {
	var o domain.Order
	if sessionID == "" {
		return o, sql.ErrNoRows
	}
	err := r.db.GetContext(ctx, &o, `SELECT `+orderCols+` FROM orders WHERE payment_session_id = ?`, sessionID)
	return o, err
}

func (r *OrderRepo) Items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	out := []domain.OrderItem{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT order_id, product_id, name, qty, price
		FROM order_items WHERE order_id = ?
		ORDER BY name`, orderID)
	return out, err
}

func (r *OrderRepo) Events(ctx context.Context, orderID string) ([]domain.OrderStatusEvent, error) {
	out := []domain.OrderStatusEvent{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT order_id, status, note, created_at
		FROM order_status_events WHERE order_id = ?
		ORDER BY id`, orderID)
	return out, err
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	out := []domain.Order{}
	if userID == "" {
		return out, nil
	}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderCols+` FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID)
	return out, err
}

func (r *OrderRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderCols+` FROM orders
		WHERE session_id = ?
		ORDER BY created_at DESC, id`, sessionID)
	return out, err
}

// List returns a page of orders for the dashboard, optionally filtered by status.
func (r *OrderRepo) List(ctx context.Context, status string, page, pageSize int) (domain.Page[domain.Order], error) {
	where := `1 = 1`
	args := []any{}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, status)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders WHERE `+where, args...); err != nil {
		return domain.Page[domain.Order]{}, err
	}
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+orderCols+` FROM orders WHERE `+where+`
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	return domain.NewPage(out, page, pageSize, total), nil
}

func (r *OrderRepo) SetPaymentSession(ctx context.Context, orderID, paymentSessionID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orders SET payment_session_id = ?, updated_at = ? WHERE id = ?`,
		paymentSessionID, now(), orderID)
	return err
}

// Transition moves an order from one status to another and appends a timeline
// event. It reports false when the order was no longer in status from, which
// makes concurrent or repeated transitions no-ops. An empty tracking keeps the
// stored tracking number.
func (r *OrderRepo) Transition(ctx context.Context, id, from, to, tracking, note string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, tracking_number = CASE WHEN ? = '' THEN tracking_number ELSE ? END, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, tracking, tracking, ts, id, from)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if err := insertEvent(ctx, tx, id, to, note, ts); err != nil {
		return false, err
	}
	return true, tx.Commit()
}
