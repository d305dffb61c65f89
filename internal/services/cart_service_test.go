package services_test

import (
	"context"
	"errors"
	"testing"

	"synergyfoods/internal/services"
)

func TestCartAddUpdateRemove(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	if err := e.cart.Add(ctx, "sid-c", "prod-oranges", 0); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.Add(ctx, "sid-c", "prod-kale", 3); err != nil {
		t.Fatal(err)
	}
	c, err := e.cart.View(ctx, "sid-c")
	if err != nil {
		t.Fatal(err)
	}
	// 3.49 + 3 * 2.79
	if c.Count() != 4 || c.Subtotal.StringFixed(2) != "11.86" {
		t.Fatalf("cart = %d units, %s", c.Count(), c.Subtotal)
	}

	if err := e.cart.SetQty(ctx, "sid-c", "prod-kale", 0); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.SetQty(ctx, "sid-c", "prod-cheddar", 2); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing line: want ErrNotFound, got %v", err)
	}
	if err := e.cart.Remove(ctx, "sid-c", "prod-oranges"); err != nil {
		t.Fatal(err)
	}
	if c, _ := e.cart.View(ctx, "sid-c"); !c.Empty() {
		t.Fatalf("cart should be empty: %+v", c.Lines)
	}
}

func TestCartRejectsHiddenAndSoldOut(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	if _, err := e.catalog.SetProductActive(ctx, "prod-kale", false); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.Add(ctx, "sid-h", "prod-kale", 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("hidden product: want ErrNotFound, got %v", err)
	}
	if _, err := e.db.Exec(`UPDATE products SET stock = 0 WHERE id = 'prod-milk'`); err != nil {
		t.Fatal(err)
	}
	if err := e.cart.Add(ctx, "sid-h", "prod-milk", 1); !errors.Is(err, services.ErrOutOfStock) {
		t.Fatalf("sold out: want ErrOutOfStock, got %v", err)
	}
	if err := e.cart.Add(ctx, "sid-h", "prod-nope", 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown product: want ErrNotFound, got %v", err)
	}
}
