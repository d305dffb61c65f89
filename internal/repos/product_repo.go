package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

// ErrOutOfStock is returned when a conditional stock decrement matches no row.
var ErrOutOfStock = errors.New("insufficient stock")

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
    p.id, p.category_id, COALESCE(p.subcategory_id,'') AS subcategory_id,
    COALESCE(p.product_type_id,'') AS product_type_id, p.name, p.slug, p.description,
    p.price, p.compare_at_price, p.unit, p.image_url, p.stock, p.is_active, p.is_featured,
    p.created_at, p.updated_at`

var productOrder = map[string]string{
	"newest":     `p.created_at DESC, p.name`,
	"price_asc":  `p.price ASC, p.name`,
	"price_desc": `p.price DESC, p.name`,
	"name":       `p.name COLLATE NOCASE ASC`,
}

// Paginate returns one page of products matching f. page and pageSize must
// already be normalised.
func (r *ProductRepo) Paginate(ctx context.Context, f domain.ProductFilter, page, pageSize int) (domain.Page[domain.Product], error) {
	where := `1 = 1`
	args := []any{}
	if !f.IncludeHidden {
		where += ` AND p.is_active = 1 AND c.is_active = 1`
	}
	if f.CategoryID != "" {
		where += ` AND p.category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.SubcategoryID != "" {
		where += ` AND p.subcategory_id = ?`
		args = append(args, f.SubcategoryID)
	}
	if f.ProductTypeID != "" {
		where += ` AND p.product_type_id = ?`
		args = append(args, f.ProductTypeID)
	}
	if f.FeaturedOnly {
		where += ` AND p.is_featured = 1`
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
		where += ` AND (LOWER(p.name) LIKE ? OR LOWER(p.description) LIKE ?)`
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	from := ` FROM products p JOIN categories c ON c.id = p.category_id WHERE ` + where

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+from, args...); err != nil {
		return domain.Page[domain.Product]{}, err
	}

	order, ok := productOrder[f.Sort]
	if !ok {
		order = productOrder["newest"]
	}
	items := []domain.Product{}
	err := r.db.SelectContext(ctx, &items, `SELECT `+productCols+from+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return domain.Page[domain.Product]{}, err
	}
	return domain.NewPage(items, page, pageSize, total), nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products p WHERE p.id = ?`, id)
	return p, err
}

func (r *ProductRepo) GetBySlug(ctx context.Context, slug string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products p WHERE p.slug = ?`, slug)
	return p, err
}

func productArgs(p *domain.Product) []any {
	return []any{
		p.CategoryID, nullable(p.SubcategoryID), nullable(p.ProductTypeID), p.Name, p.Slug, p.Description,
		p.Price, p.CompareAtPrice, p.Unit, p.ImageURL, p.Stock, p.IsActive, p.IsFeatured,
	}
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	p.CreatedAt, p.UpdatedAt = now(), now()
	args := append([]any{p.ID}, productArgs(p)...)
	args = append(args, p.CreatedAt, p.UpdatedAt)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, category_id, subcategory_id, product_type_id, name, slug, description,
		                      price, compare_at_price, unit, image_url, stock, is_active, is_featured, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	return translate(err)
}

func (r *ProductRepo) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = now()
	args := append(productArgs(p), p.UpdatedAt, p.ID)
	_, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = ?, subcategory_id = ?, product_type_id = ?, name = ?, slug = ?, description = ?,
		    price = ?, compare_at_price = ?, unit = ?, image_url = ?, stock = ?, is_active = ?, is_featured = ?,
		    updated_at = ?
		WHERE id = ?
	`, args...)
	return translate(err)
}

func (r *ProductRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE products SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
	return err
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return translate(err)
}

// decrementStock takes qty units off a product's stock only when enough remain.
func decrementStock(ctx context.Context, ex sqlx.ExecerContext, productID string, qty int) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE products SET stock = stock - ?, updated_at = ?
		WHERE id = ? AND stock >= ?
	`, qty, now(), productID, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOutOfStock
	}
	return nil
}
