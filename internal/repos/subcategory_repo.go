package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type SubcategoryRepo struct{ db *sqlx.DB }

func NewSubcategoryRepo(db *sqlx.DB) *SubcategoryRepo { return &SubcategoryRepo{db: db} }

const subcategoryCols = `id, category_id, name, slug, description, image_url, sort_order, is_active, created_at, updated_at`

// List returns subcategories, optionally restricted to one category.
func (r *SubcategoryRepo) List(ctx context.Context, categoryID string, activeOnly bool) ([]domain.Subcategory, error) {
	out := []domain.Subcategory{}
	where := `1 = 1`
	args := []any{}
	if categoryID != "" {
		where += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	if activeOnly {
		where += ` AND is_active = 1`
	}
	err := r.db.SelectContext(ctx, &out, `SELECT `+subcategoryCols+` FROM subcategories WHERE `+where+` ORDER BY sort_order, name`, args...)
	return out, err
}

func (r *SubcategoryRepo) Get(ctx context.Context, id string) (domain.Subcategory, error) {
	var s domain.Subcategory
	err := r.db.GetContext(ctx, &s, `SELECT `+subcategoryCols+` FROM subcategories WHERE id = ?`, id)
	return s, err
}

func (r *SubcategoryRepo) GetBySlug(ctx context.Context, categoryID, slug string) (domain.Subcategory, error) {
	var s domain.Subcategory
	err := r.db.GetContext(ctx, &s, `SELECT `+subcategoryCols+` FROM subcategories WHERE category_id = ? AND slug = ?`, categoryID, slug)
	return s, err
}

func (r *SubcategoryRepo) Create(ctx context.Context, s *domain.Subcategory) error {
	s.CreatedAt, s.UpdatedAt = now(), now()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO subcategories (id, category_id, name, slug, description, image_url, sort_order, is_active, created_at, updated_at)
		VALUES (:id, :category_id, :name, :slug, :description, :image_url, :sort_order, :is_active, :created_at, :updated_at)
	`, s)
	return translate(err)
}

// Update rewrites the row. Moving a subcategory to another category also moves
// its product types so their category_id stays consistent.
func (r *SubcategoryRepo) Update(ctx context.Context, s *domain.Subcategory) error {
	s.UpdatedAt = now()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, `
		UPDATE subcategories
		SET category_id = :category_id, name = :name, slug = :slug, description = :description,
		    image_url = :image_url, sort_order = :sort_order, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id
	`, s); err != nil {
		return translate(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE product_types SET category_id = ? WHERE subcategory_id = ?`, s.CategoryID, s.ID); err != nil {
		return translate(err)
	}
	return tx.Commit()
}

func (r *SubcategoryRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE subcategories SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
	return err
}

func (r *SubcategoryRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ?`, id)
	return translate(err)
}

func (r *SubcategoryRepo) CountChildren(ctx context.Context, id string) (types, products int, err error) {
	if err = r.db.GetContext(ctx, &types, `SELECT COUNT(*) FROM product_types WHERE subcategory_id = ?`, id); err != nil {
		return
	}
	err = r.db.GetContext(ctx, &products, `SELECT COUNT(*) FROM products WHERE subcategory_id = ?`, id)
	return
}
