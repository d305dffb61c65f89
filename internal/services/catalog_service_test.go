package services_test

import (
	"context"
	"errors"
	"testing"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/services"
)

func TestProductTypeDerivesCategoryAndRejectsMismatch(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	pt, err := e.catalog.CreateProductType(ctx, services.ProductTypeInput{SubcategoryID: "sub-cheese", Name: "Soft Cheese"})
	if err != nil {
		t.Fatal(err)
	}
	if pt.CategoryID != "cat-dairy" || pt.Slug != "soft-cheese" {
		t.Fatalf("category/slug not derived: %+v", pt)
	}

	_, err = e.catalog.CreateProductType(ctx, services.ProductTypeInput{
		CategoryID: "cat-bakery", SubcategoryID: "sub-cheese", Name: "Blue Cheese",
	})
	var ve *services.ValidationError
	if !errors.As(err, &ve) || ve.Fields[0].Field != "categoryId" {
		t.Fatalf("want categoryId validation error, got %v", err)
	}
	if !errors.Is(err, services.ErrInvalid) {
		t.Fatal("validation errors must match ErrInvalid")
	}

	_, err = e.catalog.CreateProductType(ctx, services.ProductTypeInput{SubcategoryID: "sub-nope", Name: "X"})
	if !errors.Is(err, services.ErrInvalid) {
		t.Fatalf("unknown parent: want ErrInvalid, got %v", err)
	}
}

func TestDeleteWithChildrenIsConflict(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	if err := e.catalog.DeleteCategory(ctx, "cat-dairy"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("category with subcategories: want ErrConflict, got %v", err)
	}
	if err := e.catalog.DeleteSubcategory(ctx, "sub-fruit"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("subcategory with types: want ErrConflict, got %v", err)
	}
	if err := e.catalog.DeleteProductType(ctx, "pt-citrus"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("type with products: want ErrConflict, got %v", err)
	}
	if err := e.catalog.DeleteCategory(ctx, "cat-missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	// An empty branch deletes bottom-up.
	c, err := e.catalog.CreateCategory(ctx, services.CategoryInput{Name: "Pantry"})
	if err != nil {
		t.Fatal(err)
	}
	sc, err := e.catalog.CreateSubcategory(ctx, services.SubcategoryInput{CategoryID: c.ID, Name: "Oils"})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.catalog.DeleteSubcategory(ctx, sc.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.catalog.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
}

func TestSlugGenerationAndUniqueness(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	c, err := e.catalog.CreateCategory(ctx, services.CategoryInput{Name: "Crème Fraîche & Butter"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Slug != "creme-fraiche-butter" || !c.IsActive {
		t.Fatalf("got %+v", c)
	}
	if _, err := e.catalog.CreateCategory(ctx, services.CategoryInput{Name: "Bakery"}); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("duplicate slug: want ErrConflict, got %v", err)
	}
	// Subcategory slugs are only unique within their category.
	if _, err := e.catalog.CreateSubcategory(ctx, services.SubcategoryInput{CategoryID: "cat-bakery", Name: "Fruit"}); err != nil {
		t.Fatalf("same slug under another category should be fine: %v", err)
	}
	if _, err := e.catalog.CreateCategory(ctx, services.CategoryInput{Name: "Bad", Slug: "Not A Slug"}); !errors.Is(err, services.ErrInvalid) {
		t.Fatalf("bad slug: want ErrInvalid, got %v", err)
	}
}

func TestTreeIsCachedAndInvalidated(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	tree, err := e.catalog.Tree(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 3 || len(tree[0].Subcategories) != 2 || len(tree[0].Subcategories[0].ProductTypes) != 2 {
		t.Fatalf("unexpected tree shape: %+v", tree)
	}
	if e.cache.sets != 1 {
		t.Fatalf("tree should be cached once, sets=%d", e.cache.sets)
	}
	if _, err := e.catalog.Tree(ctx); err != nil || e.cache.sets != 1 {
		t.Fatalf("second read should hit the cache, sets=%d err=%v", e.cache.sets, err)
	}

	if _, err := e.catalog.SetCategoryActive(ctx, "cat-bakery", false); err != nil {
		t.Fatal(err)
	}
	if e.cache.invalidated != 1 {
		t.Fatalf("mutation must invalidate, got %d", e.cache.invalidated)
	}
	tree, _ = e.catalog.Tree(ctx)
	if len(tree) != 2 {
		t.Fatalf("hidden category still in tree: %d", len(tree))
	}
}

func TestPaginateNormalisesPaging(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	pg, err := e.catalog.Paginate(ctx, domain.ProductFilter{}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if pg.Page != 1 || pg.PageSize != 12 || pg.Total != 6 || pg.TotalPages != 1 {
		t.Fatalf("defaults not applied: %+v", pg)
	}
	pg, _ = e.catalog.Paginate(ctx, domain.ProductFilter{}, -3, 500)
	if pg.Page != 1 || pg.PageSize != 48 {
		t.Fatalf("cap not applied: page=%d size=%d", pg.Page, pg.PageSize)
	}
	pg, _ = e.catalog.Paginate(ctx, domain.ProductFilter{}, 9, 12)
	if len(pg.Items) != 0 || pg.Total != 6 {
		t.Fatalf("past the end should be empty: %+v", pg)
	}
}

func TestProductTaxonomyConsistency(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	in := services.ProductInput{CategoryID: "cat-dairy", SubcategoryID: "sub-fruit", Name: "Odd"}
	if _, err := e.catalog.CreateProduct(ctx, in); !errors.Is(err, services.ErrInvalid) {
		t.Fatalf("subcategory from another category: want ErrInvalid, got %v", err)
	}
	in = services.ProductInput{CategoryID: "cat-produce", SubcategoryID: "sub-fruit", ProductTypeID: "pt-leafy", Name: "Odd"}
	if _, err := e.catalog.CreateProduct(ctx, in); !errors.Is(err, services.ErrInvalid) {
		t.Fatalf("type from another subcategory: want ErrInvalid, got %v", err)
	}
	in.ProductTypeID = "pt-citrus"
	p, err := e.catalog.CreateProduct(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if p.Slug != "odd" || p.Unit != "each" {
		t.Fatalf("defaults not applied: %+v", p)
	}
}

func TestPromoWindowValidation(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.banners.CreatePromo(context.Background(), services.PromoInput{
		Title: "Spring", ImageURL: "/x.jpg", Location: "HOME_MIDDLE",
		StartsAt: "2026-05-01T00:00:00Z", EndsAt: "2026-04-01T00:00:00Z",
	})
	if !errors.Is(err, services.ErrInvalid) {
		t.Fatalf("inverted window: want ErrInvalid, got %v", err)
	}
	_, err = e.banners.CreatePromo(context.Background(), services.PromoInput{Title: "X", ImageURL: "/x.jpg", Location: "FOOTER"})
	if !errors.Is(err, services.ErrInvalid) {
		t.Fatalf("unknown location: want ErrInvalid, got %v", err)
	}
}
