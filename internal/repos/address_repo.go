package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type AddressRepo struct{ db *sqlx.DB }

func NewAddressRepo(db *sqlx.DB) *AddressRepo { return &AddressRepo{db: db} }

const addressCols = `id, user_id, label, full_name, phone, line1, line2, city, state, postal_code, country, is_default, created_at, updated_at`

func (r *AddressRepo) ListByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	out := []domain.Address{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+addressCols+` FROM addresses
		WHERE user_id = ?
		ORDER BY is_default DESC, updated_at DESC`, userID)
	return out, err
}

// Get is scoped to the owner so one customer can never read another's address.
func (r *AddressRepo) Get(ctx context.Context, userID, id string) (domain.Address, error) {
	var a domain.Address
	err := r.db.GetContext(ctx, &a, `SELECT `+addressCols+` FROM addresses WHERE id = ? AND user_id = ?`, id, userID)
	return a, err
}

// Create inserts a. The first address of a user always becomes the default;
// a new default clears the previous one.
func (r *AddressRepo) Create(ctx context.Context, a *domain.Address) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM addresses WHERE user_id = ?`, a.UserID); err != nil {
		return err
	}
	if n == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = 0 WHERE user_id = ?`, a.UserID); err != nil {
			return err
		}
	}
	a.CreatedAt, a.UpdatedAt = now(), now()
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO addresses (id, user_id, label, full_name, phone, line1, line2, city, state, postal_code, country, is_default, created_at, updated_at)
		VALUES (:id, :user_id, :label, :full_name, :phone, :line1, :line2, :city, :state, :postal_code, :country, :is_default, :created_at, :updated_at)
	`, a); err != nil {
		return translate(err)
	}
	return tx.Commit()
}

// Update rewrites the address fields. Default handling goes through SetDefault.
func (r *AddressRepo) Update(ctx context.Context, a *domain.Address) error {
	a.UpdatedAt = now()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE addresses
		SET label = :label, full_name = :full_name, phone = :phone, line1 = :line1, line2 = :line2,
		    city = :city, state = :state, postal_code = :postal_code, country = :country, updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id
	`, a)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AddressRepo) SetDefault(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM addresses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return err
	}
	if exists == 0 {
		return sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = (id = ?) WHERE user_id = ?`, id, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the address. Deleting the default promotes the most recently
// updated remaining address.
func (r *AddressRepo) Delete(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var wasDefault bool
	if err := tx.GetContext(ctx, &wasDefault, `SELECT is_default FROM addresses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM addresses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return err
	}
	if wasDefault {
		var next string
		err := tx.GetContext(ctx, &next, `SELECT id FROM addresses WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC LIMIT 1`, userID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = 1 WHERE id = ?`, next); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}
