package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type CheckoutRepo struct{ db *sqlx.DB }

func NewCheckoutRepo(db *sqlx.DB) *CheckoutRepo { return &CheckoutRepo{db: db} }

func (r *CheckoutRepo) Get(ctx context.Context, sessionID string) (domain.Checkout, error) {
	var c domain.Checkout
	err := r.db.GetContext(ctx, &c, `
		SELECT session_id, step, email, full_name, phone, line1, line2, city, state, postal_code, country,
		       shipping_method, payment_method, order_id, updated_at
		FROM checkouts WHERE session_id = ?`, sessionID)
	return c, err
}

// Save upserts the whole wizard state for c.SessionID.
func (r *CheckoutRepo) Save(ctx context.Context, c *domain.Checkout) error {
	c.UpdatedAt = now()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO checkouts (session_id, step, email, full_name, phone, line1, line2, city, state, postal_code, country,
		                       shipping_method, payment_method, order_id, updated_at)
		VALUES (:session_id, :step, :email, :full_name, :phone, :line1, :line2, :city, :state, :postal_code, :country,
		        :shipping_method, :payment_method, :order_id, :updated_at)
		ON CONFLICT(session_id) DO UPDATE SET
		  step = excluded.step, email = excluded.email, full_name = excluded.full_name, phone = excluded.phone,
		  line1 = excluded.line1, line2 = excluded.line2, city = excluded.city, state = excluded.state,
		  postal_code = excluded.postal_code, country = excluded.country,
		  shipping_method = excluded.shipping_method, payment_method = excluded.payment_method,
		  order_id = excluded.order_id, updated_at = excluded.updated_at
	`, c)
	return translate(err)
}

func (r *CheckoutRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM checkouts WHERE session_id = ?`, sessionID)
	return err
}
