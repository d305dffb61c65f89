package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"synergyfoods/internal/domain"
)

// ProductInput is the dashboard payload for products. Prices are decimal
// strings or numbers in JSON.
type ProductInput struct {
	CategoryID     string              `json:"categoryId" validate:"required"`
	SubcategoryID  string              `json:"subcategoryId"`
	ProductTypeID  string              `json:"productTypeId"`
	Name           string              `json:"name" validate:"required,max=120"`
	Slug           string              `json:"slug" validate:"omitempty,slug"`
	Description    string              `json:"description" validate:"max=2000"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compareAtPrice"`
	Unit           string              `json:"unit" validate:"max=40"`
	ImageURL       string              `json:"imageUrl" validate:"max=300"`
	Stock          int                 `json:"stock" validate:"gte=0"`
	IsActive       *bool               `json:"isActive"`
	IsFeatured     bool                `json:"isFeatured"`
}

// Paginate is the storefront and dashboard product listing. Paging input is
// normalised: page < 1 becomes 1, pageSize <= 0 becomes 12, capped at 48.
func (s *CatalogService) Paginate(ctx context.Context, f domain.ProductFilter, page, pageSize int) (domain.Page[domain.Product], error) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	return s.Prods.Paginate(ctx, f, page, pageSize)
}

// ProductBySlug returns an active product for the storefront.
func (s *CatalogService) ProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	p, err := s.Prods.GetBySlug(ctx, slug)
	if err != nil {
		return p, lookup(err, "product")
	}
	if !p.IsActive {
		return p, fmt.Errorf("product: %w", ErrNotFound)
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	return p, lookup(err, "product")
}

// checkProduct validates money fields and that the taxonomy ids form one branch.
func (s *CatalogService) checkProduct(ctx context.Context, in ProductInput) error {
	if err := check(in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return invalid("price", "must be greater than or equal to 0")
	}
	if in.CompareAtPrice.Valid && in.CompareAtPrice.Decimal.IsNegative() {
		return invalid("compareAtPrice", "must be greater than or equal to 0")
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return err
	}
	if in.SubcategoryID != "" {
		sc, err := s.Subs.Get(ctx, in.SubcategoryID)
		if err != nil {
			if isNotFound(err) {
				return invalid("subcategoryId", "does not exist")
			}
			return err
		}
		if sc.CategoryID != in.CategoryID {
			return invalid("subcategoryId", "does not belong to the category")
		}
	}
	if in.ProductTypeID != "" {
		if in.SubcategoryID == "" {
			return invalid("subcategoryId", "is required when productTypeId is set")
		}
		pt, err := s.Types.Get(ctx, in.ProductTypeID)
		if err != nil {
			if isNotFound(err) {
				return invalid("productTypeId", "does not exist")
			}
			return err
		}
		if pt.SubcategoryID != in.SubcategoryID {
			return invalid("productTypeId", "does not belong to the subcategory")
		}
	}
	return nil
}

func (s *CatalogService) applyProduct(p *domain.Product, in ProductInput, slug string) {
	p.CategoryID, p.SubcategoryID, p.ProductTypeID = in.CategoryID, in.SubcategoryID, in.ProductTypeID
	p.Name, p.Slug, p.Description = in.Name, slug, in.Description
	p.Price = in.Price.Round(2)
	p.CompareAtPrice = in.CompareAtPrice
	if p.CompareAtPrice.Valid {
		p.CompareAtPrice.Decimal = p.CompareAtPrice.Decimal.Round(2)
	}
	p.Unit, p.ImageURL, p.Stock, p.IsFeatured = in.Unit, in.ImageURL, in.Stock, in.IsFeatured
	if p.Unit == "" {
		p.Unit = "each"
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := s.checkProduct(ctx, in); err != nil {
		return domain.Product{}, err
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return domain.Product{}, err
	}
	p := domain.Product{ID: uuid.NewString(), IsActive: boolOr(in.IsActive, true)}
	s.applyProduct(&p, in, slug)
	if err := s.Prods.Create(ctx, &p); err != nil {
		return p, store(err, "create product")
	}
	invalidate(ctx, s.Cache)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return p, lookup(err, "product")
	}
	if err := s.checkProduct(ctx, in); err != nil {
		return p, err
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return p, err
	}
	s.applyProduct(&p, in, slug)
	p.IsActive = boolOr(in.IsActive, p.IsActive)
	if err := s.Prods.Update(ctx, &p); err != nil {
		return p, store(err, "update product")
	}
	invalidate(ctx, s.Cache)
	return p, nil
}

func (s *CatalogService) SetProductActive(ctx context.Context, id string, active bool) (domain.Product, error) {
	if _, err := s.Prods.Get(ctx, id); err != nil {
		return domain.Product{}, lookup(err, "product")
	}
	if err := s.Prods.SetActive(ctx, id, active); err != nil {
		return domain.Product{}, err
	}
	invalidate(ctx, s.Cache)
	return s.GetProduct(ctx, id)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.Prods.Get(ctx, id); err != nil {
		return lookup(err, "product")
	}
	if err := s.Prods.Delete(ctx, id); err != nil {
		return store(err, "delete product")
	}
	invalidate(ctx, s.Cache)
	return nil
}
