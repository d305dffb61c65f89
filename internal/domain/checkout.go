package domain

import "github.com/shopspring/decimal"

// Checkout wizard steps, in order.
const (
	StepShipping     = "shipping"
	StepPayment      = "payment"
	StepReview       = "review"
	StepConfirmation = "confirmation"
)

var CheckoutSteps = []string{StepShipping, StepPayment, StepReview, StepConfirmation}

// StepIndex returns the position of step in the wizard, or -1.
func StepIndex(step string) int {
	for i, s := range CheckoutSteps {
		if s == step {
			return i
		}
	}
	return -1
}

const (
	ShipStandard = "standard"
	ShipExpress  = "express"

	PayCard           = "card"
	PayCashOnDelivery = "cash_on_delivery"
)

type Checkout struct {
	SessionID      string `db:"session_id"`
	Step           string `db:"step"`
	Email          string `db:"email"`
	FullName       string `db:"full_name"`
	Phone          string `db:"phone"`
	Line1          string `db:"line1"`
	Line2          string `db:"line2"`
	City           string `db:"city"`
	State          string `db:"state"`
	PostalCode     string `db:"postal_code"`
	Country        string `db:"country"`
	ShippingMethod string `db:"shipping_method"`
	PaymentMethod  string `db:"payment_method"`
	OrderID        string `db:"order_id"`
	UpdatedAt      string `db:"updated_at"`
}

type Quote struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}
