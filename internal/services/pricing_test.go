package services_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"synergyfoods/internal/services"
)

func TestPriceQuote(t *testing.T) {
	d := decimal.RequireFromString
	cases := []struct {
		name                         string
		subtotal, method             string
		wantShip, wantTax, wantTotal string
	}{
		{"standard under threshold", "10.00", "standard", "4.99", "0.80", "15.79"},
		{"standard just under threshold", "49.99", "standard", "4.99", "4.00", "58.98"},
		{"standard at threshold is free", "50.00", "standard", "0", "4.00", "54.00"},
		{"express never free", "80.00", "express", "12.99", "6.40", "99.39"},
		{"tax rounds half-up to cents", "18.49", "standard", "4.99", "1.48", "24.96"},
		{"unrounded subtotal", "10.005", "express", "12.99", "0.80", "23.80"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := services.PriceQuote(d(tc.subtotal), tc.method)
			if !q.ShippingCost.Equal(d(tc.wantShip)) || !q.Tax.Equal(d(tc.wantTax)) || !q.Total.Equal(d(tc.wantTotal)) {
				t.Fatalf("got ship=%s tax=%s total=%s", q.ShippingCost, q.Tax, q.Total)
			}
		})
	}
}
