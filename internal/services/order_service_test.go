package services_test

import (
	"context"
	"errors"
	"testing"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/services"
)

func placeCOD(t *testing.T, e *env, sid, userID string) domain.Order {
	t.Helper()
	ctx := context.Background()
	if err := e.cart.Add(ctx, sid, "prod-milk", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := e.checkout.Start(ctx, sid, userID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.checkout.SubmitShipping(ctx, sid, userID, shipping()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.checkout.SubmitPayment(ctx, sid, services.PaymentInput{PaymentMethod: "cash_on_delivery"}); err != nil {
		t.Fatal(err)
	}
	placed, err := e.checkout.Place(ctx, sid, userID)
	if err != nil {
		t.Fatal(err)
	}
	return placed.Order
}

func TestOrderStatusTransitions(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	o := placeCOD(t, e, "sid-1", "")

	steps := []struct {
		in      services.StatusInput
		wantErr error
	}{
		{services.StatusInput{Status: "SHIPPED", TrackingNumber: "1Z"}, services.ErrConflict},
		{services.StatusInput{Status: "PAID"}, services.ErrConflict},
		{services.StatusInput{Status: "PROCESSING"}, nil},
		{services.StatusInput{Status: "SHIPPED"}, services.ErrInvalid},
		{services.StatusInput{Status: "SHIPPED", TrackingNumber: " 1Z999AA1 "}, nil},
		{services.StatusInput{Status: "CANCELLED"}, services.ErrConflict},
		{services.StatusInput{Status: "DELIVERED", Note: "Left at door"}, nil},
		{services.StatusInput{Status: "BOGUS"}, services.ErrInvalid},
	}
	for i, st := range steps {
		_, err := e.orders.UpdateStatus(ctx, o.ID, st.in)
		if st.wantErr == nil && err != nil {
			t.Fatalf("step %d (%s): unexpected %v", i, st.in.Status, err)
		}
		if st.wantErr != nil && !errors.Is(err, st.wantErr) {
			t.Fatalf("step %d (%s): want %v, got %v", i, st.in.Status, st.wantErr, err)
		}
	}

	d, err := e.orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Order.Status != domain.OrderDelivered || d.Order.TrackingNumber != "1Z999AA1" {
		t.Fatalf("final order: %+v", d.Order)
	}
	if len(d.Timeline) != 4 || d.Timeline[3].Note != "Left at door" {
		t.Fatalf("timeline: %+v", d.Timeline)
	}
	// order.created + three status changes
	if n := len(e.events.Events); n != 4 {
		t.Fatalf("want 4 events, got %d", n)
	}
}

func TestOrderListFiltersByStatus(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	a := placeCOD(t, e, "sid-a", "")
	placeCOD(t, e, "sid-b", "")
	if _, err := e.orders.UpdateStatus(ctx, a.ID, services.StatusInput{Status: "CANCELLED"}); err != nil {
		t.Fatal(err)
	}
	pg, err := e.orders.List(ctx, "CANCELLED", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if pg.Total != 1 || pg.Items[0].ID != a.ID {
		t.Fatalf("filter failed: %+v", pg)
	}
	pg, _ = e.orders.List(ctx, "", 0, 0)
	if pg.Total != 2 {
		t.Fatalf("want 2 orders, got %d", pg.Total)
	}
}
