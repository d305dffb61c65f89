package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, email, name, phone, password_hash, role`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, phone, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Name, u.Phone, u.Hash, u.Role, now(), now())
	return translate(err)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, phone string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET name = ?, phone = ?, updated_at = ? WHERE id = ?`, name, phone, now(), id)
	return err
}

// TouchSession records an anonymous session so carts and checkouts can hang off it.
func (r *UserRepo) TouchSession(ctx context.Context, sid string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, last_seen) VALUES (?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET last_seen = CURRENT_TIMESTAMP
	`, sid)
	return err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, last_seen) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, last_seen = CURRENT_TIMESTAMP
	`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `
		SELECT u.id, u.email, u.name, u.phone, u.password_hash, u.role
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET user_id = NULL, last_seen = CURRENT_TIMESTAMP WHERE id = ?`, sid)
	return err
}
