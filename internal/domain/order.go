package domain

import "github.com/shopspring/decimal"

const (
	OrderPendingPayment = "PENDING_PAYMENT"
	OrderPlaced         = "PLACED"
	OrderPaid           = "PAID"
	OrderPaymentFailed  = "PAYMENT_FAILED"
	OrderProcessing     = "PROCESSING"
	OrderShipped        = "SHIPPED"
	OrderDelivered      = "DELIVERED"
	OrderCancelled      = "CANCELLED"
)

// orderTransitions lists the statuses reachable from each status.
var orderTransitions = map[string][]string{
	OrderPendingPayment: {OrderPaid, OrderPaymentFailed, OrderCancelled},
	OrderPlaced:         {OrderProcessing, OrderCancelled},
	OrderPaid:           {OrderProcessing, OrderCancelled},
	OrderPaymentFailed:  {OrderCancelled},
	OrderProcessing:     {OrderShipped, OrderCancelled},
	OrderShipped:        {OrderDelivered},
}

func CanTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func NextStatuses(from string) []string { return orderTransitions[from] }

type Order struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"userId,omitempty"`
	SessionID        string          `db:"session_id" json:"-"`
	Email            string          `db:"email" json:"email"`
	FullName         string          `db:"full_name" json:"fullName"`
	Phone            string          `db:"phone" json:"phone"`
	Line1            string          `db:"line1" json:"line1"`
	Line2            string          `db:"line2" json:"line2"`
	City             string          `db:"city" json:"city"`
	State            string          `db:"state" json:"state"`
	PostalCode       string          `db:"postal_code" json:"postalCode"`
	Country          string          `db:"country" json:"country"`
	ShippingMethod   string          `db:"shipping_method" json:"shippingMethod"`
	PaymentMethod    string          `db:"payment_method" json:"paymentMethod"`
	Subtotal         decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingCost     decimal.Decimal `db:"shipping_cost" json:"shippingCost"`
	Tax              decimal.Decimal `db:"tax" json:"tax"`
	Total            decimal.Decimal `db:"total" json:"total"`
	Status           string          `db:"status" json:"status"`
	PaymentSessionID string          `db:"payment_session_id" json:"paymentSessionId,omitempty"`
	TrackingNumber   string          `db:"tracking_number" json:"trackingNumber,omitempty"`
	CreatedAt        string          `db:"created_at" json:"createdAt"`
	UpdatedAt        string          `db:"updated_at" json:"updatedAt"`
}

type OrderItem struct {
	OrderID   string          `db:"order_id" json:"-"`
	ProductID string          `db:"product_id" json:"productId"`
	Name      string          `db:"name" json:"name"`
	Qty       int             `db:"qty" json:"qty"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

func (i OrderItem) Subtotal() decimal.Decimal { return i.Price.Mul(decimal.NewFromInt(int64(i.Qty))) }

type OrderStatusEvent struct {
	OrderID   string `db:"order_id" json:"-"`
	Status    string `db:"status" json:"status"`
	Note      string `db:"note" json:"note"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

type OrderDetail struct {
	Order    Order              `json:"order"`
	Items    []OrderItem        `json:"items"`
	Timeline []OrderStatusEvent `json:"timeline"`
}
