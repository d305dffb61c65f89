package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/events"
	"synergyfoods/internal/payment"
	"synergyfoods/internal/repos"
)

// CheckoutService sequences the shipping → payment → review → confirmation
// wizard. State is persisted per session so a reload resumes where it was.
type CheckoutService struct {
	Checkouts *repos.CheckoutRepo
	Carts     *repos.CartRepo
	Orders    *repos.OrderRepo
	Addresses *repos.AddressRepo
	Users     *repos.UserRepo
	Gateway   payment.Gateway
	Events    events.Publisher
	BaseURL   string
}

func NewCheckoutService(checkouts *repos.CheckoutRepo, carts *repos.CartRepo, orders *repos.OrderRepo,
	addrs *repos.AddressRepo, users *repos.UserRepo, gw payment.Gateway, pub events.Publisher, baseURL string) *CheckoutService {
	if pub == nil {
		pub = events.Noop{}
	}
	if gw == nil {
		gw = payment.Offline{}
	}
	return &CheckoutService{
		Checkouts: checkouts, Carts: carts, Orders: orders, Addresses: addrs, Users: users,
		Gateway: gw, Events: pub, BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ShippingInput carries contact and address fields. A signed-in customer may
// send SavedAddressID instead; the address fields are then filled from it.
type ShippingInput struct {
	Email          string `json:"email" form:"email" validate:"required,email,max=254"`
	SavedAddressID string `json:"savedAddressId" form:"savedAddressId"`
	FullName       string `json:"fullName" form:"fullName" validate:"required,max=80"`
	Phone          string `json:"phone" form:"phone" validate:"max=20"`
	Line1          string `json:"line1" form:"line1" validate:"required,max=120"`
	Line2          string `json:"line2" form:"line2" validate:"max=120"`
	City           string `json:"city" form:"city" validate:"required,max=80"`
	State          string `json:"state" form:"state" validate:"max=80"`
	PostalCode     string `json:"postalCode" form:"postalCode" validate:"required"`
	Country        string `json:"country" form:"country" validate:"required,len=2"`
	ShippingMethod string `json:"shippingMethod" form:"shippingMethod" validate:"required,oneof=standard express"`
}

type PaymentInput struct {
	PaymentMethod string `json:"paymentMethod" form:"paymentMethod" validate:"required,oneof=card cash_on_delivery"`
}

// Placed is the outcome of placing an order. RedirectURL is set for card
// payments and points at the provider's hosted page.
type Placed struct {
	Order       domain.Order `json:"order"`
	SessionID   string       `json:"sessionId,omitempty"`
	RedirectURL string       `json:"url,omitempty"`
}

func (s *CheckoutService) load(ctx context.Context, sid string) (domain.Checkout, error) {
	co, err := s.Checkouts.Get(ctx, sid)
	return co, lookup(err, "checkout")
}

// State returns the saved wizard state for the session.
func (s *CheckoutService) State(ctx context.Context, sid string) (domain.Checkout, error) {
	return s.load(ctx, sid)
}

func (s *CheckoutService) cart(ctx context.Context, sid string) (string, []domain.CartLine, error) {
	cartID, err := s.Carts.EnsureCart(ctx, sid)
	if err != nil {
		return "", nil, err
	}
	lines, err := s.Carts.Lines(ctx, cartID)
	if err != nil {
		return "", nil, err
	}
	if len(lines) == 0 {
		return cartID, nil, ErrEmptyCart
	}
	return cartID, lines, nil
}

// Start opens the wizard at the shipping step. Previously entered details are
// kept; a signed-in customer's email, name and default address prefill empty fields.
func (s *CheckoutService) Start(ctx context.Context, sid, userID string) (domain.Checkout, error) {
	if _, _, err := s.cart(ctx, sid); err != nil {
		return domain.Checkout{}, err
	}
	co, err := s.Checkouts.Get(ctx, sid)
	if err != nil && !isNotFound(err) {
		return co, err
	}
	if co.Step == domain.StepConfirmation {
		co = domain.Checkout{}
	}
	co.SessionID, co.Step, co.OrderID = sid, domain.StepShipping, ""
	if userID != "" {
		s.prefill(ctx, &co, userID)
	}
	if co.ShippingMethod == "" {
		co.ShippingMethod = domain.ShipStandard
	}
	if err := s.Checkouts.Save(ctx, &co); err != nil {
		return co, err
	}
	return co, nil
}

func (s *CheckoutService) prefill(ctx context.Context, co *domain.Checkout, userID string) {
	if u, err := s.Users.ByID(ctx, userID); err == nil {
		if co.Email == "" {
			co.Email = u.Email
		}
		if co.FullName == "" {
			co.FullName = u.Name
		}
		if co.Phone == "" {
			co.Phone = u.Phone
		}
	}
	if co.Line1 != "" {
		return
	}
	addrs, err := s.Addresses.ListByUser(ctx, userID)
	if err != nil || len(addrs) == 0 || !addrs[0].IsDefault {
		return
	}
	copyAddress(co, addrs[0])
}

func copyAddress(co *domain.Checkout, a domain.Address) {
	co.FullName, co.Phone, co.Line1, co.Line2 = a.FullName, a.Phone, a.Line1, a.Line2
	co.City, co.State, co.PostalCode, co.Country = a.City, a.State, a.PostalCode, a.Country
}

// requireStep fails with ErrStepOrder unless the wizard is at one of allowed.
func requireStep(co domain.Checkout, allowed ...string) error {
	for _, st := range allowed {
		if co.Step == st {
			return nil
		}
	}
	return fmt.Errorf("at %q, want one of %v: %w", co.Step, allowed, ErrStepOrder)
}

// SubmitShipping records contact, address and shipping method and advances to
// payment. It is accepted again from payment or review to edit the details.
func (s *CheckoutService) SubmitShipping(ctx context.Context, sid, userID string, in ShippingInput) (domain.Checkout, error) {
	co, err := s.load(ctx, sid)
	if err != nil {
		return co, err
	}
	if err := requireStep(co, domain.StepShipping, domain.StepPayment, domain.StepReview); err != nil {
		return co, err
	}
	if in.SavedAddressID != "" {
		if userID == "" {
			return co, invalid("savedAddressId", "requires signing in")
		}
		a, err := s.Addresses.Get(ctx, userID, in.SavedAddressID)
		if err != nil {
			if isNotFound(err) {
				return co, invalid("savedAddressId", "does not exist")
			}
			return co, err
		}
		in.FullName, in.Phone, in.Line1, in.Line2 = a.FullName, a.Phone, a.Line1, a.Line2
		in.City, in.State, in.PostalCode, in.Country = a.City, a.State, a.PostalCode, a.Country
	}
	if err := check(in); err != nil {
		return co, err
	}
	addr, err := cleanAddress(AddressInput{
		FullName: in.FullName, Phone: in.Phone, Line1: in.Line1, Line2: in.Line2,
		City: in.City, State: in.State, PostalCode: in.PostalCode, Country: in.Country,
	})
	if err != nil {
		return co, err
	}

	co.Email = strings.TrimSpace(in.Email)
	copyAddress(&co, domain.Address{
		FullName: addr.FullName, Phone: addr.Phone, Line1: addr.Line1, Line2: addr.Line2,
		City: addr.City, State: addr.State, PostalCode: addr.PostalCode, Country: addr.Country,
	})
	co.ShippingMethod = in.ShippingMethod
	co.Step = domain.StepPayment
	if err := s.Checkouts.Save(ctx, &co); err != nil {
		return co, err
	}
	return co, nil
}

// SubmitPayment records the payment method and advances to review.
func (s *CheckoutService) SubmitPayment(ctx context.Context, sid string, in PaymentInput) (domain.Checkout, error) {
	co, err := s.load(ctx, sid)
	if err != nil {
		return co, err
	}
	if err := requireStep(co, domain.StepPayment, domain.StepReview); err != nil {
		return co, err
	}
	if err := check(in); err != nil {
		return co, err
	}
	co.PaymentMethod = in.PaymentMethod
	co.Step = domain.StepReview
	if err := s.Checkouts.Save(ctx, &co); err != nil {
		return co, err
	}
	return co, nil
}

// Back moves one step back. It stays at shipping and refuses once confirmed.
func (s *CheckoutService) Back(ctx context.Context, sid string) (domain.Checkout, error) {
	co, err := s.load(ctx, sid)
	if err != nil {
		return co, err
	}
	i := domain.StepIndex(co.Step)
	if co.Step == domain.StepConfirmation || i < 0 {
		return co, fmt.Errorf("cannot go back from %q: %w", co.Step, ErrStepOrder)
	}
	if i == 0 {
		return co, nil
	}
	co.Step = domain.CheckoutSteps[i-1]
	if err := s.Checkouts.Save(ctx, &co); err != nil {
		return co, err
	}
	return co, nil
}

// Quote prices the current cart with the chosen shipping method.
func (s *CheckoutService) Quote(ctx context.Context, sid string) (domain.Quote, error) {
	_, lines, err := s.cart(ctx, sid)
	if err != nil {
		return domain.Quote{}, err
	}
	method := domain.ShipStandard
	if co, err := s.Checkouts.Get(ctx, sid); err == nil && co.ShippingMethod != "" {
		method = co.ShippingMethod
	}
	return PriceQuote(linesSubtotal(lines), method), nil
}

func linesSubtotal(lines []domain.CartLine) decimal.Decimal {
	sub := decimal.Zero
	for _, l := range lines {
		sub = sub.Add(l.Subtotal())
	}
	return sub
}

// Place turns the reviewed checkout into an order. Card orders start
// PENDING_PAYMENT and get a hosted checkout session; cash on delivery orders
// start PLACED. The wizard ends at confirmation either way.
func (s *CheckoutService) Place(ctx context.Context, sid, userID string) (Placed, error) {
	co, err := s.load(ctx, sid)
	if err != nil {
		return Placed{}, err
	}
	if err := requireStep(co, domain.StepReview); err != nil {
		return Placed{}, err
	}
	if co.PaymentMethod == "" || co.ShippingMethod == "" {
		return Placed{}, fmt.Errorf("payment or shipping method missing: %w", ErrStepOrder)
	}
	cartID, lines, err := s.cart(ctx, sid)
	if err != nil {
		return Placed{}, err
	}
	for _, l := range lines {
		if l.Qty > l.Stock {
			return Placed{}, fmt.Errorf("%s: only %d left: %w", l.Name, l.Stock, ErrOutOfStock)
		}
	}

	q := PriceQuote(linesSubtotal(lines), co.ShippingMethod)
	status := domain.OrderPlaced
	if co.PaymentMethod == domain.PayCard {
		status = domain.OrderPendingPayment
	}
	o := domain.Order{
		ID: uuid.NewString(), UserID: userID, SessionID: sid, Email: co.Email,
		FullName: co.FullName, Phone: co.Phone, Line1: co.Line1, Line2: co.Line2, City: co.City,
		State: co.State, PostalCode: co.PostalCode, Country: co.Country,
		ShippingMethod: co.ShippingMethod, PaymentMethod: co.PaymentMethod,
		Subtotal: q.Subtotal, ShippingCost: q.ShippingCost, Tax: q.Tax, Total: q.Total, Status: status,
	}
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{ProductID: l.ProductID, Name: l.Name, Qty: l.Qty, Price: l.PriceAtAdd})
	}

	if err := s.Orders.Place(ctx, &o, items, cartID, "Order placed"); err != nil {
		if errors.Is(err, repos.ErrOutOfStock) {
			return Placed{}, fmt.Errorf("place order: %w", ErrOutOfStock)
		}
		return Placed{}, fmt.Errorf("place order: %w", err)
	}

	co.OrderID, co.Step = o.ID, domain.StepConfirmation
	if err := s.Checkouts.Save(ctx, &co); err != nil {
		return Placed{}, err
	}
	publish(ctx, s.Events, events.NewOrderEvent(events.OrderCreated, o.ID, o.Status, o.Total))

	out := Placed{Order: o}
	if o.PaymentMethod != domain.PayCard {
		return out, nil
	}

	sess, err := s.Gateway.CreateCheckoutSession(ctx, s.sessionRequest(o, items, q))
	if err != nil {
		// The order exists; record the failure so it shows on the timeline.
		if ok, terr := s.Orders.Transition(ctx, o.ID, domain.OrderPendingPayment, domain.OrderPaymentFailed, "", "Payment session could not be created"); terr == nil && ok {
			o.Status = domain.OrderPaymentFailed
			publish(ctx, s.Events, events.NewOrderEvent(events.OrderStatusChanged, o.ID, o.Status, o.Total))
		}
		return Placed{Order: o}, fmt.Errorf("create payment session: %w", err)
	}
	if err := s.Orders.SetPaymentSession(ctx, o.ID, sess.ID); err != nil {
		return out, err
	}
	out.Order.PaymentSessionID = sess.ID
	out.SessionID, out.RedirectURL = sess.ID, sess.URL
	return out, nil
}

// CreateSession is Place for API clients, restricted to card payments.
func (s *CheckoutService) CreateSession(ctx context.Context, sid, userID string) (Placed, error) {
	co, err := s.load(ctx, sid)
	if err != nil {
		return Placed{}, err
	}
	if co.Step == domain.StepReview && co.PaymentMethod != domain.PayCard {
		return Placed{}, invalid("paymentMethod", "must be card to create a payment session")
	}
	return s.Place(ctx, sid, userID)
}

func (s *CheckoutService) sessionRequest(o domain.Order, items []domain.OrderItem, q domain.Quote) payment.SessionRequest {
	req := payment.SessionRequest{
		OrderID:    o.ID,
		Email:      o.Email,
		Currency:   "usd",
		SuccessURL: s.BaseURL + "/checkout/confirmation?order=" + o.ID,
		CancelURL:  s.BaseURL + "/track?order=" + o.ID,
	}
	for _, it := range items {
		req.Items = append(req.Items, payment.LineItem{Name: it.Name, UnitPrice: it.Price, Qty: it.Qty})
	}
	if q.ShippingCost.IsPositive() {
		req.Items = append(req.Items, payment.LineItem{Name: "Shipping", UnitPrice: q.ShippingCost, Qty: 1})
	}
	if q.Tax.IsPositive() {
		req.Items = append(req.Items, payment.LineItem{Name: "Tax", UnitPrice: q.Tax, Qty: 1})
	}
	return req
}

// Confirmation returns the order placed by this session.
func (s *CheckoutService) Confirmation(ctx context.Context, sid, orderID string) (domain.OrderDetail, error) {
	if orderID == "" {
		co, err := s.load(ctx, sid)
		if err != nil {
			return domain.OrderDetail{}, err
		}
		orderID = co.OrderID
	}
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return domain.OrderDetail{}, lookup(err, "order")
	}
	if o.SessionID != sid {
		return domain.OrderDetail{}, fmt.Errorf("order: %w", ErrNotFound)
	}
	return orderDetail(ctx, s.Orders, o)
}
