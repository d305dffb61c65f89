package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"synergyfoods/internal/domain"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// EnsureCart returns the cart id for a session, creating the cart on first use.
// The cart id is the session id.
func (r *CartRepo) EnsureCart(ctx context.Context, sessionID string) (string, error) {
	var cartID string
	err := r.db.GetContext(ctx, &cartID, `SELECT id FROM carts WHERE session_id = ?`, sessionID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO carts(id, session_id, updated_at) VALUES(?, ?, ?)`,
		sessionID, sessionID, now()); err != nil {
		return "", err
	}
	return sessionID, nil
}

// AddItem adds qty units, capping the line at max.
func (r *CartRepo) AddItem(ctx context.Context, cartID, productID string, qty, max int, price decimal.Decimal) error {
	ts := now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items(cart_id, product_id, qty, price_at_add, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(cart_id, product_id) DO UPDATE
		SET qty = MIN(cart_items.qty + excluded.qty, ?), updated_at = excluded.updated_at
	`, cartID, productID, qty, price, ts, ts, max)
	if err != nil {
		return translate(err)
	}
	return r.touch(ctx, cartID)
}

// SetQty overwrites a line's quantity. It reports false when the line does not exist.
func (r *CartRepo) SetQty(ctx context.Context, cartID, productID string, qty int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE cart_items SET qty = ?, updated_at = ? WHERE cart_id = ? AND product_id = ?`,
		qty, now(), cartID, productID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, r.touch(ctx, cartID)
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, productID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepo) Lines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	out := []domain.CartLine{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT ci.product_id, p.name, p.slug, p.image_url, p.unit, ci.qty, ci.price_at_add, p.stock
		FROM cart_items ci JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ?
		ORDER BY ci.created_at, p.name
	`, cartID)
	return out, err
}

func (r *CartRepo) Clear(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	return err
}

func (r *CartRepo) touch(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = ? WHERE id = ?`, now(), cartID)
	return err
}
