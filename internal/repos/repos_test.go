package repos_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestProductPaginateFiltersAndSort(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	products := repos.NewProductRepo(db)

	pg, err := products.Paginate(ctx, domain.ProductFilter{CategoryID: "cat-produce", Sort: "price_asc"}, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if pg.Total != 3 || pg.TotalPages != 2 || len(pg.Items) != 2 {
		t.Fatalf("bad page: total=%d pages=%d items=%d", pg.Total, pg.TotalPages, len(pg.Items))
	}
	if pg.Items[0].ID != "prod-kale" || pg.Items[1].ID != "prod-oranges" {
		t.Fatalf("price_asc order wrong: %s, %s", pg.Items[0].ID, pg.Items[1].ID)
	}

	pg, err = products.Paginate(ctx, domain.ProductFilter{Q: "CHEDDAR"}, 1, 12)
	if err != nil {
		t.Fatal(err)
	}
	if pg.Total != 1 || pg.Items[0].Slug != "aged-cheddar" {
		t.Fatalf("search failed: %+v", pg.Items)
	}

	pg, err = products.Paginate(ctx, domain.ProductFilter{FeaturedOnly: true, Sort: "name"}, 1, 12)
	if err != nil {
		t.Fatal(err)
	}
	if pg.Total != 3 || pg.Items[0].ID != "prod-cheddar" {
		t.Fatalf("featured filter failed: %+v", pg.Items)
	}

	// Hidden products disappear from the storefront but not from the dashboard.
	if err := products.SetActive(ctx, "prod-kale", false); err != nil {
		t.Fatal(err)
	}
	pg, _ = products.Paginate(ctx, domain.ProductFilter{ProductTypeID: "pt-leafy"}, 1, 12)
	if pg.Total != 0 {
		t.Fatalf("inactive product listed: %+v", pg.Items)
	}
	pg, _ = products.Paginate(ctx, domain.ProductFilter{ProductTypeID: "pt-leafy", IncludeHidden: true}, 1, 12)
	if pg.Total != 1 {
		t.Fatalf("dashboard should see hidden product, got %d", pg.Total)
	}
}

func TestProductNullableColumns(t *testing.T) {
	db := memdb(t)
	p, err := repos.NewProductRepo(db).GetBySlug(context.Background(), "whole-milk")
	if err != nil {
		t.Fatal(err)
	}
	if p.ProductTypeID != "" || p.SubcategoryID != "sub-milk" {
		t.Fatalf("unexpected taxonomy ids: %+v", p)
	}
	if p.CompareAtPrice.Valid {
		t.Fatal("compare-at price should be null")
	}
	if !p.Price.Equal(decimal.RequireFromString("3.99")) {
		t.Fatalf("price = %s", p.Price)
	}
}

func TestCategoryDuplicateSlugIsConstraint(t *testing.T) {
	db := memdb(t)
	err := repos.NewCategoryRepo(db).Create(context.Background(), &domain.Category{ID: "c-x", Name: "Dup", Slug: "bakery", IsActive: true})
	if !errors.Is(err, repos.ErrConstraint) {
		t.Fatalf("want ErrConstraint, got %v", err)
	}
}

func TestAddressDefaultInvariant(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	addrs := repos.NewAddressRepo(db)

	mk := func(id string, def bool) *domain.Address {
		return &domain.Address{ID: id, UserID: "u-alice", FullName: "Alice", Line1: "1 Main St",
			City: "College Park", PostalCode: "20742", Country: "US", IsDefault: def}
	}
	first := mk("a1", false)
	if err := addrs.Create(ctx, first); err != nil {
		t.Fatal(err)
	}
	if !first.IsDefault {
		t.Fatal("first address must become default")
	}
	if err := addrs.Create(ctx, mk("a2", true)); err != nil {
		t.Fatal(err)
	}
	if err := addrs.Create(ctx, mk("a3", false)); err != nil {
		t.Fatal(err)
	}

	defaults := func() []string {
		var ids []string
		list, err := addrs.ListByUser(ctx, "u-alice")
		if err != nil {
			t.Fatal(err)
		}
		for _, a := range list {
			if a.IsDefault {
				ids = append(ids, a.ID)
			}
		}
		return ids
	}
	if d := defaults(); len(d) != 1 || d[0] != "a2" {
		t.Fatalf("want a2 as sole default, got %v", d)
	}

	if err := addrs.SetDefault(ctx, "u-alice", "a1"); err != nil {
		t.Fatal(err)
	}
	if d := defaults(); len(d) != 1 || d[0] != "a1" {
		t.Fatalf("want a1 as sole default, got %v", d)
	}

	if err := addrs.Delete(ctx, "u-alice", "a1"); err != nil {
		t.Fatal(err)
	}
	if d := defaults(); len(d) != 1 {
		t.Fatalf("a default must be promoted after delete, got %v", d)
	}

	// Another customer cannot touch Alice's address.
	if err := addrs.SetDefault(ctx, "u-bob", "a2"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("cross-user set default: want ErrNoRows, got %v", err)
	}
	if _, err := addrs.Get(ctx, "u-bob", "a2"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("cross-user get: want ErrNoRows, got %v", err)
	}
}

func TestCartAddCapsQuantity(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	carts := repos.NewCartRepo(db)

	cartID, err := carts.EnsureCart(ctx, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	price := decimal.RequireFromString("3.49")
	if err := carts.AddItem(ctx, cartID, "prod-oranges", 30, 50, price); err != nil {
		t.Fatal(err)
	}
	if err := carts.AddItem(ctx, cartID, "prod-oranges", 30, 50, price); err != nil {
		t.Fatal(err)
	}
	lines, err := carts.Lines(ctx, cartID)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0].Qty != 50 {
		t.Fatalf("want one line capped at 50, got %+v", lines)
	}
	if ok, _ := carts.SetQty(ctx, cartID, "prod-kale", 2); ok {
		t.Fatal("SetQty on a missing line should report false")
	}
}

func placeOrder(t *testing.T, db *sqlx.DB, id string, qty int) error {
	t.Helper()
	ctx := context.Background()
	carts := repos.NewCartRepo(db)
	cartID, err := carts.EnsureCart(ctx, "sid-"+id)
	if err != nil {
		t.Fatal(err)
	}
	if err := carts.AddItem(ctx, cartID, "prod-sourdough", qty, 50, decimal.RequireFromString("6.25")); err != nil {
		t.Fatal(err)
	}
	o := &domain.Order{ID: id, SessionID: "sid-" + id, Email: "t@example.com", FullName: "T", Line1: "1 Main",
		City: "X", PostalCode: "20742", Country: "US", ShippingMethod: domain.ShipStandard,
		PaymentMethod: domain.PayCashOnDelivery, Status: domain.OrderPlaced}
	items := []domain.OrderItem{{ProductID: "prod-sourdough", Name: "Country Sourdough", Qty: qty, Price: decimal.RequireFromString("6.25")}}
	return repos.NewOrderRepo(db).Place(ctx, o, items, cartID, "placed")
}

func TestOrderPlaceDecrementsStockAndClearsCart(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()

	if err := placeOrder(t, db, "o-1", 10); err != nil {
		t.Fatal(err)
	}
	p, _ := repos.NewProductRepo(db).Get(ctx, "prod-sourdough")
	if p.Stock != 5 {
		t.Fatalf("want stock 5, got %d", p.Stock)
	}
	lines, _ := repos.NewCartRepo(db).Lines(ctx, "sid-o-1")
	if len(lines) != 0 {
		t.Fatalf("cart not cleared: %+v", lines)
	}

	// Only 5 left: the second order must roll back entirely.
	if err := placeOrder(t, db, "o-2", 6); !errors.Is(err, repos.ErrOutOfStock) {
		t.Fatalf("want ErrOutOfStock, got %v", err)
	}
	if _, err := repos.NewOrderRepo(db).Get(ctx, "o-2"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("rolled back order persisted: %v", err)
	}
	lines, _ = repos.NewCartRepo(db).Lines(ctx, "sid-o-2")
	if len(lines) != 1 {
		t.Fatal("cart must survive a failed placement")
	}
}

func TestOrderTransitionIsConditional(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	orders := repos.NewOrderRepo(db)
	if err := placeOrder(t, db, "o-1", 1); err != nil {
		t.Fatal(err)
	}

	ok, err := orders.Transition(ctx, "o-1", domain.OrderPlaced, domain.OrderProcessing, "", "")
	if err != nil || !ok {
		t.Fatalf("first transition: ok=%v err=%v", ok, err)
	}
	ok, err = orders.Transition(ctx, "o-1", domain.OrderPlaced, domain.OrderProcessing, "", "")
	if err != nil || ok {
		t.Fatalf("repeated transition must be a no-op: ok=%v err=%v", ok, err)
	}
	if _, err := orders.Transition(ctx, "o-1", domain.OrderProcessing, domain.OrderShipped, "1Z999", "handed to carrier"); err != nil {
		t.Fatal(err)
	}

	o, _ := orders.Get(ctx, "o-1")
	if o.Status != domain.OrderShipped || o.TrackingNumber != "1Z999" {
		t.Fatalf("bad order after transitions: %+v", o)
	}
	events, _ := orders.Events(ctx, "o-1")
	if len(events) != 3 || events[2].Status != domain.OrderShipped {
		t.Fatalf("timeline wrong: %+v", events)
	}
}

func TestPromoBannerWindow(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	promos := repos.NewPromoBannerRepo(db)
	if err := promos.Create(ctx, &domain.PromotionalBanner{
		ID: "p-future", Title: "Soon", ImageURL: "/x.jpg", Location: domain.PromoHomeTop, IsActive: true,
		StartsAt: "2999-01-01T00:00:00Z",
	}); err != nil {
		t.Fatal(err)
	}
	live, err := promos.ListLive(ctx, domain.PromoHomeTop, "2026-06-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 1 || live[0].ID != "promo-free-ship" {
		t.Fatalf("want only the seeded banner live, got %+v", live)
	}
}
