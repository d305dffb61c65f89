package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=gateway.go -destination=mock_gateway.go -package=payment

// Gateway creates hosted checkout sessions the customer is redirected to.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
}

type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Qty       int
}

type SessionRequest struct {
	OrderID    string
	Email      string
	Currency   string
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

var ErrProvider = errors.New("payment provider error")

// Client talks to the provider's checkout-session endpoint with a bearer secret.
type Client struct {
	baseURL   string
	secretKey string
	timeout   time.Duration
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{baseURL: baseURL, secretKey: secretKey, timeout: 15 * time.Second}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	args.Set("mode", "payment")
	args.Set("client_reference_id", req.OrderID)
	args.Set("customer_email", req.Email)
	args.Set("success_url", req.SuccessURL)
	args.Set("cancel_url", req.CancelURL)
	args.Set("metadata[order_id]", req.OrderID)
	for i, it := range req.Items {
		p := fmt.Sprintf("line_items[%d]", i)
		args.Set(p+"[price_data][currency]", currency)
		args.Set(p+"[price_data][product_data][name]", it.Name)
		args.Set(p+"[price_data][unit_amount]", it.UnitPrice.Shift(2).Round(0).String())
		args.Set(p+"[quantity]", strconv.Itoa(it.Qty))
	}

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	agent := fiber.Post(c.baseURL+"/v1/checkout/sessions").Timeout(timeout).
		Add("Authorization", "Bearer "+c.secretKey).
		Add("Idempotency-Key", req.OrderID).
		Form(args)

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return Session{}, fmt.Errorf("%w: %v", ErrProvider, errors.Join(errs...))
	}
	if statusCode >= 300 {
		return Session{}, fmt.Errorf("%w: status %d: %s", ErrProvider, statusCode, body)
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, fmt.Errorf("%w: decode: %v", ErrProvider, err)
	}
	if s.ID == "" || s.URL == "" {
		return Session{}, fmt.Errorf("%w: incomplete session %s", ErrProvider, body)
	}
	return s, nil
}

// Offline stands in for the provider when no secret key is configured. It
// hands back a local session that lands on the confirmation page; the order
// stays PENDING_PAYMENT until a webhook marks it paid.
type Offline struct{}

func (Offline) CreateCheckoutSession(_ context.Context, req SessionRequest) (Session, error) {
	return Session{ID: "offline_" + uuid.NewString(), URL: req.SuccessURL}, nil
}
