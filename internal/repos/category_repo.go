package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = `id, name, slug, description, image_url, sort_order, is_active, created_at, updated_at`

func (r *CategoryRepo) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	out := []domain.Category{}
	q := `SELECT ` + categoryCols + ` FROM categories`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY sort_order, name`
	err := r.db.SelectContext(ctx, &out, q)
	return out, err
}

func (r *CategoryRepo) Get(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := r.db.GetContext(ctx, &c, `SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	return c, err
}

func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (domain.Category, error) {
	var c domain.Category
	err := r.db.GetContext(ctx, &c, `SELECT `+categoryCols+` FROM categories WHERE slug = ?`, slug)
	return c, err
}

func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	c.CreatedAt, c.UpdatedAt = now(), now()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, image_url, sort_order, is_active, created_at, updated_at)
		VALUES (:id, :name, :slug, :description, :image_url, :sort_order, :is_active, :created_at, :updated_at)
	`, c)
	return translate(err)
}

func (r *CategoryRepo) Update(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = now()
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE categories
		SET name = :name, slug = :slug, description = :description, image_url = :image_url,
		    sort_order = :sort_order, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id
	`, c)
	return translate(err)
}

func (r *CategoryRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE categories SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
	return err
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return translate(err)
}

// CountChildren returns how many subcategories and products reference the category.
func (r *CategoryRepo) CountChildren(ctx context.Context, id string) (subs, products int, err error) {
	if err = r.db.GetContext(ctx, &subs, `SELECT COUNT(*) FROM subcategories WHERE category_id = ?`, id); err != nil {
		return
	}
	err = r.db.GetContext(ctx, &products, `SELECT COUNT(*) FROM products WHERE category_id = ?`, id)
	return
}
