package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"synergyfoods/internal/cache"
	"synergyfoods/internal/domain"
	"synergyfoods/internal/repos"
)

type CatalogService struct {
	Cats  *repos.CategoryRepo
	Subs  *repos.SubcategoryRepo
	Types *repos.ProductTypeRepo
	Prods *repos.ProductRepo
	Cache cache.Store
}

func NewCatalogService(cats *repos.CategoryRepo, subs *repos.SubcategoryRepo, types *repos.ProductTypeRepo,
	prods *repos.ProductRepo, c cache.Store) *CatalogService {
	if c == nil {
		c = cache.Noop{}
	}
	return &CatalogService{Cats: cats, Subs: subs, Types: types, Prods: prods, Cache: c}
}

type CategoryInput struct {
	Name        string `json:"name" form:"name" validate:"required,max=80"`
	Slug        string `json:"slug" form:"slug" validate:"omitempty,slug"`
	Description string `json:"description" form:"description" validate:"max=500"`
	ImageURL    string `json:"imageUrl" form:"imageUrl" validate:"max=300"`
	SortOrder   int    `json:"sortOrder" form:"sortOrder" validate:"gte=0"`
	IsActive    *bool  `json:"isActive" form:"isActive"`
}

type SubcategoryInput struct {
	CategoryID  string `json:"categoryId" form:"categoryId" validate:"required"`
	Name        string `json:"name" form:"name" validate:"required,max=80"`
	Slug        string `json:"slug" form:"slug" validate:"omitempty,slug"`
	Description string `json:"description" form:"description" validate:"max=500"`
	ImageURL    string `json:"imageUrl" form:"imageUrl" validate:"max=300"`
	SortOrder   int    `json:"sortOrder" form:"sortOrder" validate:"gte=0"`
	IsActive    *bool  `json:"isActive" form:"isActive"`
}

// ProductTypeInput may omit CategoryID; it is derived from the subcategory.
type ProductTypeInput struct {
	CategoryID    string `json:"categoryId" form:"categoryId"`
	SubcategoryID string `json:"subcategoryId" form:"subcategoryId" validate:"required"`
	Name          string `json:"name" form:"name" validate:"required,max=80"`
	Slug          string `json:"slug" form:"slug" validate:"omitempty,slug"`
	SortOrder     int    `json:"sortOrder" form:"sortOrder" validate:"gte=0"`
	IsActive      *bool  `json:"isActive" form:"isActive"`
}

const treeKey = catalogPrefix + "tree"

// Tree returns active categories with their active subcategories and product
// types nested, served from cache when possible.
func (s *CatalogService) Tree(ctx context.Context) ([]domain.Category, error) {
	var tree []domain.Category
	if cache.Load(ctx, s.Cache, treeKey, &tree) {
		return tree, nil
	}

	cats, err := s.Cats.List(ctx, true)
	if err != nil {
		return nil, err
	}
	subs, err := s.Subs.List(ctx, "", true)
	if err != nil {
		return nil, err
	}
	types, err := s.Types.List(ctx, "", true)
	if err != nil {
		return nil, err
	}

	typesBySub := map[string][]domain.ProductType{}
	for _, t := range types {
		typesBySub[t.SubcategoryID] = append(typesBySub[t.SubcategoryID], t)
	}
	subsByCat := map[string][]domain.Subcategory{}
	for _, sc := range subs {
		sc.ProductTypes = typesBySub[sc.ID]
		subsByCat[sc.CategoryID] = append(subsByCat[sc.CategoryID], sc)
	}
	for i := range cats {
		cats[i].Subcategories = subsByCat[cats[i].ID]
	}

	remember(ctx, s.Cache, treeKey, cats)
	return cats, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	return s.Cats.List(ctx, activeOnly)
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	c, err := s.Cats.Get(ctx, id)
	return c, lookup(err, "category")
}

// CategoryBySlug resolves a storefront category with its active subcategories.
// Hidden categories are reported as not found.
func (s *CatalogService) CategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	c, err := s.Cats.GetBySlug(ctx, slug)
	if err != nil {
		return c, lookup(err, "category")
	}
	if !c.IsActive {
		return c, fmt.Errorf("category: %w", ErrNotFound)
	}
	c.Subcategories, err = s.Subs.List(ctx, c.ID, true)
	return c, err
}

// SubcategoryBySlug resolves /c/:cat/:sub, including active product types.
func (s *CatalogService) SubcategoryBySlug(ctx context.Context, catSlug, subSlug string) (domain.Category, domain.Subcategory, error) {
	c, err := s.CategoryBySlug(ctx, catSlug)
	if err != nil {
		return c, domain.Subcategory{}, err
	}
	sc, err := s.Subs.GetBySlug(ctx, c.ID, subSlug)
	if err != nil {
		return c, sc, lookup(err, "subcategory")
	}
	if !sc.IsActive {
		return c, sc, fmt.Errorf("subcategory: %w", ErrNotFound)
	}
	sc.ProductTypes, err = s.Types.List(ctx, sc.ID, true)
	return c, sc, err
}

func (s *CatalogService) ProductTypeBySlug(ctx context.Context, catSlug, subSlug, typeSlug string) (domain.Category, domain.Subcategory, domain.ProductType, error) {
	c, sc, err := s.SubcategoryBySlug(ctx, catSlug, subSlug)
	if err != nil {
		return c, sc, domain.ProductType{}, err
	}
	pt, err := s.Types.GetBySlug(ctx, sc.ID, typeSlug)
	if err != nil {
		return c, sc, pt, lookup(err, "product type")
	}
	if !pt.IsActive {
		return c, sc, pt, fmt.Errorf("product type: %w", ErrNotFound)
	}
	return c, sc, pt, nil
}

// ---- categories ----

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (domain.Category, error) {
	if err := check(in); err != nil {
		return domain.Category{}, err
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return domain.Category{}, err
	}
	c := domain.Category{
		ID: uuid.NewString(), Name: in.Name, Slug: slug, Description: in.Description,
		ImageURL: in.ImageURL, SortOrder: in.SortOrder, IsActive: boolOr(in.IsActive, true),
	}
	if err := s.Cats.Create(ctx, &c); err != nil {
		return c, store(err, "create category")
	}
	invalidate(ctx, s.Cache)
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, in CategoryInput) (domain.Category, error) {
	if err := check(in); err != nil {
		return domain.Category{}, err
	}
	c, err := s.Cats.Get(ctx, id)
	if err != nil {
		return c, lookup(err, "category")
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return c, err
	}
	c.Name, c.Slug, c.Description, c.ImageURL, c.SortOrder = in.Name, slug, in.Description, in.ImageURL, in.SortOrder
	c.IsActive = boolOr(in.IsActive, c.IsActive)
	if err := s.Cats.Update(ctx, &c); err != nil {
		return c, store(err, "update category")
	}
	invalidate(ctx, s.Cache)
	return c, nil
}

func (s *CatalogService) SetCategoryActive(ctx context.Context, id string, active bool) (domain.Category, error) {
	if _, err := s.Cats.Get(ctx, id); err != nil {
		return domain.Category{}, lookup(err, "category")
	}
	if err := s.Cats.SetActive(ctx, id, active); err != nil {
		return domain.Category{}, err
	}
	invalidate(ctx, s.Cache)
	return s.GetCategory(ctx, id)
}

// DeleteCategory refuses while subcategories or products still reference it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.Cats.Get(ctx, id); err != nil {
		return lookup(err, "category")
	}
	subs, prods, err := s.Cats.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if subs > 0 || prods > 0 {
		return fmt.Errorf("category has %d subcategories and %d products: %w", subs, prods, ErrConflict)
	}
	if err := s.Cats.Delete(ctx, id); err != nil {
		return store(err, "delete category")
	}
	invalidate(ctx, s.Cache)
	return nil
}

// ---- subcategories ----

func (s *CatalogService) ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	return s.Subs.List(ctx, categoryID, false)
}

func (s *CatalogService) GetSubcategory(ctx context.Context, id string) (domain.Subcategory, error) {
	sc, err := s.Subs.Get(ctx, id)
	return sc, lookup(err, "subcategory")
}

func (s *CatalogService) requireCategory(ctx context.Context, id string) error {
	if _, err := s.Cats.Get(ctx, id); err != nil {
		if isNotFound(err) {
			return invalid("categoryId", "does not exist")
		}
		return err
	}
	return nil
}

func (s *CatalogService) CreateSubcategory(ctx context.Context, in SubcategoryInput) (domain.Subcategory, error) {
	if err := check(in); err != nil {
		return domain.Subcategory{}, err
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return domain.Subcategory{}, err
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return domain.Subcategory{}, err
	}
	sc := domain.Subcategory{
		ID: uuid.NewString(), CategoryID: in.CategoryID, Name: in.Name, Slug: slug, Description: in.Description,
		ImageURL: in.ImageURL, SortOrder: in.SortOrder, IsActive: boolOr(in.IsActive, true),
	}
	if err := s.Subs.Create(ctx, &sc); err != nil {
		return sc, store(err, "create subcategory")
	}
	invalidate(ctx, s.Cache)
	return sc, nil
}

// UpdateSubcategory may move the subcategory to another category; its product
// types follow. Moving is refused while products reference the subcategory.
func (s *CatalogService) UpdateSubcategory(ctx context.Context, id string, in SubcategoryInput) (domain.Subcategory, error) {
	if err := check(in); err != nil {
		return domain.Subcategory{}, err
	}
	sc, err := s.Subs.Get(ctx, id)
	if err != nil {
		return sc, lookup(err, "subcategory")
	}
	if in.CategoryID != sc.CategoryID {
		if err := s.requireCategory(ctx, in.CategoryID); err != nil {
			return sc, err
		}
		_, prods, err := s.Subs.CountChildren(ctx, id)
		if err != nil {
			return sc, err
		}
		if prods > 0 {
			return sc, fmt.Errorf("subcategory has %d products and cannot change category: %w", prods, ErrConflict)
		}
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return sc, err
	}
	sc.CategoryID, sc.Name, sc.Slug, sc.Description = in.CategoryID, in.Name, slug, in.Description
	sc.ImageURL, sc.SortOrder = in.ImageURL, in.SortOrder
	sc.IsActive = boolOr(in.IsActive, sc.IsActive)
	if err := s.Subs.Update(ctx, &sc); err != nil {
		return sc, store(err, "update subcategory")
	}
	invalidate(ctx, s.Cache)
	return sc, nil
}

func (s *CatalogService) SetSubcategoryActive(ctx context.Context, id string, active bool) (domain.Subcategory, error) {
	if _, err := s.Subs.Get(ctx, id); err != nil {
		return domain.Subcategory{}, lookup(err, "subcategory")
	}
	if err := s.Subs.SetActive(ctx, id, active); err != nil {
		return domain.Subcategory{}, err
	}
	invalidate(ctx, s.Cache)
	return s.GetSubcategory(ctx, id)
}

func (s *CatalogService) DeleteSubcategory(ctx context.Context, id string) error {
	if _, err := s.Subs.Get(ctx, id); err != nil {
		return lookup(err, "subcategory")
	}
	types, prods, err := s.Subs.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if types > 0 || prods > 0 {
		return fmt.Errorf("subcategory has %d product types and %d products: %w", types, prods, ErrConflict)
	}
	if err := s.Subs.Delete(ctx, id); err != nil {
		return store(err, "delete subcategory")
	}
	invalidate(ctx, s.Cache)
	return nil
}

// ---- product types ----

func (s *CatalogService) ListProductTypes(ctx context.Context, subcategoryID string) ([]domain.ProductType, error) {
	return s.Types.List(ctx, subcategoryID, false)
}

func (s *CatalogService) GetProductType(ctx context.Context, id string) (domain.ProductType, error) {
	pt, err := s.Types.Get(ctx, id)
	return pt, lookup(err, "product type")
}

// parentOf resolves the subcategory of a product type and checks the caller's
// categoryId, when given, agrees with it.
func (s *CatalogService) parentOf(ctx context.Context, in ProductTypeInput) (domain.Subcategory, error) {
	sc, err := s.Subs.Get(ctx, in.SubcategoryID)
	if err != nil {
		if isNotFound(err) {
			return sc, invalid("subcategoryId", "does not exist")
		}
		return sc, err
	}
	if in.CategoryID != "" && in.CategoryID != sc.CategoryID {
		return sc, invalid("categoryId", "does not match the subcategory's category")
	}
	return sc, nil
}

func (s *CatalogService) CreateProductType(ctx context.Context, in ProductTypeInput) (domain.ProductType, error) {
	if err := check(in); err != nil {
		return domain.ProductType{}, err
	}
	sc, err := s.parentOf(ctx, in)
	if err != nil {
		return domain.ProductType{}, err
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return domain.ProductType{}, err
	}
	pt := domain.ProductType{
		ID: uuid.NewString(), CategoryID: sc.CategoryID, SubcategoryID: sc.ID, Name: in.Name, Slug: slug,
		SortOrder: in.SortOrder, IsActive: boolOr(in.IsActive, true),
	}
	if err := s.Types.Create(ctx, &pt); err != nil {
		return pt, store(err, "create product type")
	}
	invalidate(ctx, s.Cache)
	return pt, nil
}

func (s *CatalogService) UpdateProductType(ctx context.Context, id string, in ProductTypeInput) (domain.ProductType, error) {
	if err := check(in); err != nil {
		return domain.ProductType{}, err
	}
	pt, err := s.Types.Get(ctx, id)
	if err != nil {
		return pt, lookup(err, "product type")
	}
	sc, err := s.parentOf(ctx, in)
	if err != nil {
		return pt, err
	}
	if sc.ID != pt.SubcategoryID {
		n, err := s.Types.CountProducts(ctx, id)
		if err != nil {
			return pt, err
		}
		if n > 0 {
			return pt, fmt.Errorf("product type has %d products and cannot move: %w", n, ErrConflict)
		}
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return pt, err
	}
	pt.CategoryID, pt.SubcategoryID, pt.Name, pt.Slug, pt.SortOrder = sc.CategoryID, sc.ID, in.Name, slug, in.SortOrder
	pt.IsActive = boolOr(in.IsActive, pt.IsActive)
	if err := s.Types.Update(ctx, &pt); err != nil {
		return pt, store(err, "update product type")
	}
	invalidate(ctx, s.Cache)
	return pt, nil
}

func (s *CatalogService) SetProductTypeActive(ctx context.Context, id string, active bool) (domain.ProductType, error) {
	if _, err := s.Types.Get(ctx, id); err != nil {
		return domain.ProductType{}, lookup(err, "product type")
	}
	if err := s.Types.SetActive(ctx, id, active); err != nil {
		return domain.ProductType{}, err
	}
	invalidate(ctx, s.Cache)
	return s.GetProductType(ctx, id)
}

func (s *CatalogService) DeleteProductType(ctx context.Context, id string) error {
	if _, err := s.Types.Get(ctx, id); err != nil {
		return lookup(err, "product type")
	}
	n, err := s.Types.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("product type has %d products: %w", n, ErrConflict)
	}
	if err := s.Types.Delete(ctx, id); err != nil {
		return store(err, "delete product type")
	}
	invalidate(ctx, s.Cache)
	return nil
}
