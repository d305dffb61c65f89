package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type ProductTypeRepo struct{ db *sqlx.DB }

func NewProductTypeRepo(db *sqlx.DB) *ProductTypeRepo { return &ProductTypeRepo{db: db} }

const productTypeCols = `id, category_id, subcategory_id, name, slug, sort_order, is_active, created_at, updated_at`

func (r *ProductTypeRepo) List(ctx context.Context, subcategoryID string, activeOnly bool) ([]domain.ProductType, error) {
	out := []domain.ProductType{}
	where := `1 = 1`
	args := []any{}
	if subcategoryID != "" {
		where += ` AND subcategory_id = ?`
		args = append(args, subcategoryID)
	}
	if activeOnly {
		where += ` AND is_active = 1`
	}
	err := r.db.SelectContext(ctx, &out, `SELECT `+productTypeCols+` FROM product_types WHERE `+where+` ORDER BY sort_order, name`, args...)
	return out, err
}

func (r *ProductTypeRepo) Get(ctx context.Context, id string) (domain.ProductType, error) {
	var p domain.ProductType
	err := r.db.GetContext(ctx, &p, `SELECT `+productTypeCols+` FROM product_types WHERE id = ?`, id)
	return p, err
}

func (r *ProductTypeRepo) GetBySlug(ctx context.Context, subcategoryID, slug string) (domain.ProductType, error) {
	var p domain.ProductType
	err := r.db.GetContext(ctx, &p, `SELECT `+productTypeCols+` FROM product_types WHERE subcategory_id = ? AND slug = ?`, subcategoryID, slug)
	return p, err
}

func (r *ProductTypeRepo) Create(ctx context.Context, p *domain.ProductType) error {
	p.CreatedAt, p.UpdatedAt = now(), now()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO product_types (id, category_id, subcategory_id, name, slug, sort_order, is_active, created_at, updated_at)
		VALUES (:id, :category_id, :subcategory_id, :name, :slug, :sort_order, :is_active, :created_at, :updated_at)
	`, p)
	return translate(err)
}

func (r *ProductTypeRepo) Update(ctx context.Context, p *domain.ProductType) error {
	p.UpdatedAt = now()
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE product_types
		SET category_id = :category_id, subcategory_id = :subcategory_id, name = :name, slug = :slug,
		    sort_order = :sort_order, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id
	`, p)
	return translate(err)
}

func (r *ProductTypeRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE product_types SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
	return err
}

func (r *ProductTypeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM product_types WHERE id = ?`, id)
	return translate(err)
}

func (r *ProductTypeRepo) CountProducts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE product_type_id = ?`, id)
	return n, err
}
