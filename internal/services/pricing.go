package services

import (
	"github.com/shopspring/decimal"

	"synergyfoods/internal/domain"
)

var (
	StandardShipping      = decimal.RequireFromString("4.99")
	ExpressShipping       = decimal.RequireFromString("12.99")
	FreeShippingThreshold = decimal.RequireFromString("50.00")
	TaxRate               = decimal.RequireFromString("0.08")
)

// ShippingCost applies the flat rates. Standard shipping is free from the
// threshold up; express never is.
func ShippingCost(subtotal decimal.Decimal, method string) decimal.Decimal {
	if method == domain.ShipExpress {
		return ExpressShipping
	}
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return StandardShipping
}

// PriceQuote computes the checkout totals. Each component is rounded half-up
// to cents before summing.
func PriceQuote(subtotal decimal.Decimal, method string) domain.Quote {
	subtotal = subtotal.Round(2)
	ship := ShippingCost(subtotal, method).Round(2)
	tax := subtotal.Mul(TaxRate).Round(2)
	return domain.Quote{
		Subtotal:     subtotal,
		ShippingCost: ship,
		Tax:          tax,
		Total:        subtotal.Add(ship).Add(tax),
	}
}
