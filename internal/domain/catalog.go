package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description"`
	ImageURL    string `db:"image_url" json:"imageUrl"`
	SortOrder   int    `db:"sort_order" json:"sortOrder"`
	IsActive    bool   `db:"is_active" json:"isActive"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
	UpdatedAt   string `db:"updated_at" json:"updatedAt"`

	Subcategories []Subcategory `db:"-" json:"subcategories,omitempty"`
}

type Subcategory struct {
	ID          string `db:"id" json:"id"`
	CategoryID  string `db:"category_id" json:"categoryId"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description"`
	ImageURL    string `db:"image_url" json:"imageUrl"`
	SortOrder   int    `db:"sort_order" json:"sortOrder"`
	IsActive    bool   `db:"is_active" json:"isActive"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
	UpdatedAt   string `db:"updated_at" json:"updatedAt"`

	ProductTypes []ProductType `db:"-" json:"productTypes,omitempty"`
}

type ProductType struct {
	ID            string `db:"id" json:"id"`
	CategoryID    string `db:"category_id" json:"categoryId"`
	SubcategoryID string `db:"subcategory_id" json:"subcategoryId"`
	Name          string `db:"name" json:"name"`
	Slug          string `db:"slug" json:"slug"`
	SortOrder     int    `db:"sort_order" json:"sortOrder"`
	IsActive      bool   `db:"is_active" json:"isActive"`
	CreatedAt     string `db:"created_at" json:"createdAt"`
	UpdatedAt     string `db:"updated_at" json:"updatedAt"`
}

type Product struct {
	ID             string              `db:"id" json:"id"`
	CategoryID     string              `db:"category_id" json:"categoryId"`
	SubcategoryID  string              `db:"subcategory_id" json:"subcategoryId,omitempty"`
	ProductTypeID  string              `db:"product_type_id" json:"productTypeId,omitempty"`
	Name           string              `db:"name" json:"name"`
	Slug           string              `db:"slug" json:"slug"`
	Description    string              `db:"description" json:"description"`
	Price          decimal.Decimal     `db:"price" json:"price"`
	CompareAtPrice decimal.NullDecimal `db:"compare_at_price" json:"compareAtPrice"`
	Unit           string              `db:"unit" json:"unit"`
	ImageURL       string              `db:"image_url" json:"imageUrl"`
	Stock          int                 `db:"stock" json:"stock"`
	IsActive       bool                `db:"is_active" json:"isActive"`
	IsFeatured     bool                `db:"is_featured" json:"isFeatured"`
	CreatedAt      string              `db:"created_at" json:"createdAt"`
	UpdatedAt      string              `db:"updated_at" json:"updatedAt"`
}

// OnSale reports whether a higher compare-at price should be shown struck out.
func (p Product) OnSale() bool {
	return p.CompareAtPrice.Valid && p.CompareAtPrice.Decimal.GreaterThan(p.Price)
}

// ProductFilter drives product.paginate. Empty fields do not filter.
type ProductFilter struct {
	CategoryID    string
	SubcategoryID string
	ProductTypeID string
	Q             string
	FeaturedOnly  bool
	IncludeHidden bool
	Sort          string // newest | price_asc | price_desc | name
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }
func (p Page[T]) PrevPage() int { return p.Page - 1 }
func (p Page[T]) NextPage() int { return p.Page + 1 }

const (
	DefaultPageSize = 12
	MaxPageSize     = 48
)

// NormalizePage clamps paging input: page < 1 becomes 1, pageSize <= 0 becomes
// DefaultPageSize and anything above MaxPageSize is capped.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func NewPage[T any](items []T, page, pageSize, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := (total + pageSize - 1) / pageSize
	return Page[T]{Items: items, Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}
