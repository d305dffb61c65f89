package handlers

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/log"
	"synergyfoods/internal/services"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
	Cart     *services.CartService
	Account  *services.AccountService
	Orders   *services.OrderService

	// WebhookToken is the shared secret the payment provider sends in
	// X-Webhook-Token. Empty rejects every webhook.
	WebhookToken string
}

func stepURL(step string) string {
	switch step {
	case domain.StepPayment:
		return "/checkout/payment"
	case domain.StepReview:
		return "/checkout/review"
	case domain.StepConfirmation:
		return "/checkout/confirmation"
	}
	return "/checkout/shipping"
}

// GET /checkout opens the wizard at shipping.
func (h *CheckoutHandler) Start(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if _, err := h.Checkout.Start(c.UserContext(), sid, currentUserID(c)); err != nil {
		return pageError(c, err, "Checkout is not available")
	}
	return c.Redirect("/checkout/shipping")
}

// page renders a wizard step. A visitor whose checkout is elsewhere is sent
// to the step they are actually on.
func (h *CheckoutHandler) page(c *fiber.Ctx, tmpl string, status int, extra fiber.Map, allowed ...string) error {
	sid := ensureSID(c)
	ctx := c.UserContext()
	co, err := h.Checkout.State(ctx, sid)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Redirect("/checkout")
		}
		return err
	}
	ok := false
	for _, st := range allowed {
		ok = ok || co.Step == st
	}
	if !ok {
		if co.Step == domain.StepConfirmation {
			return c.Redirect("/checkout")
		}
		return c.Redirect(stepURL(co.Step))
	}
	cv, err := h.Cart.View(ctx, sid)
	if err != nil {
		return err
	}
	if cv.Empty() {
		return c.Redirect("/cart")
	}
	q, err := h.Checkout.Quote(ctx, sid)
	if err != nil {
		return pageError(c, err, "Checkout is not available")
	}
	data := fiber.Map{"Checkout": co, "Cart": cv, "Quote": q, "Step": co.Step}
	if uid := currentUserID(c); uid != "" && tmpl == "checkout_shipping" {
		if addrs, err := h.Account.ListAddresses(ctx, uid); err == nil {
			data["Addresses"] = addrs
		}
	}
	for k, v := range extra {
		data[k] = v
	}
	return render(c.Status(status), tmpl, data)
}

func (h *CheckoutHandler) ShippingPage(c *fiber.Ctx) error {
	return h.page(c, "checkout_shipping", fiber.StatusOK, nil, domain.StepShipping, domain.StepPayment, domain.StepReview)
}

func (h *CheckoutHandler) SubmitShipping(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var in services.ShippingInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form")
	}
	if _, err := h.Checkout.SubmitShipping(c.UserContext(), sid, currentUserID(c), in); err != nil {
		if fe, ok := formErrors(err); ok {
			log.Security(c, "validation.fail", map[string]any{"form": "checkout.shipping"})
			return h.page(c, "checkout_shipping", fiber.StatusUnprocessableEntity, fiber.Map{"Errors": fe, "In": in},
				domain.StepShipping, domain.StepPayment, domain.StepReview)
		}
		return pageError(c, err, "Checkout is not available")
	}
	return c.Redirect("/checkout/payment")
}

func (h *CheckoutHandler) PaymentPage(c *fiber.Ctx) error {
	return h.page(c, "checkout_payment", fiber.StatusOK, nil, domain.StepPayment, domain.StepReview)
}

func (h *CheckoutHandler) SubmitPayment(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var in services.PaymentInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form")
	}
	if _, err := h.Checkout.SubmitPayment(c.UserContext(), sid, in); err != nil {
		if fe, ok := formErrors(err); ok {
			return h.page(c, "checkout_payment", fiber.StatusUnprocessableEntity, fiber.Map{"Errors": fe},
				domain.StepPayment, domain.StepReview)
		}
		return pageError(c, err, "Checkout is not available")
	}
	return c.Redirect("/checkout/review")
}

func (h *CheckoutHandler) ReviewPage(c *fiber.Ctx) error {
	return h.page(c, "checkout_review", fiber.StatusOK, nil, domain.StepReview)
}

// POST /checkout/back
func (h *CheckoutHandler) Back(c *fiber.Ctx) error {
	co, err := h.Checkout.Back(c.UserContext(), ensureSID(c))
	if err != nil {
		return pageError(c, err, "Checkout is not available")
	}
	return c.Redirect(stepURL(co.Step))
}

// POST /checkout/place
func (h *CheckoutHandler) Place(c *fiber.Ctx) error {
	sid := ensureSID(c)
	placed, err := h.Checkout.Place(c.UserContext(), sid, currentUserID(c))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrOutOfStock):
		log.Info(c, "order.place.stock", map[string]any{"err": err.Error()})
		return h.page(c, "checkout_review", fiber.StatusConflict,
			fiber.Map{"Err": "Some items no longer have enough stock. Please update your cart."}, domain.StepReview)
	case placed.Order.ID != "":
		// The order exists but the payment session could not be created.
		log.Error(c, "order.payment.session.fail", err, map[string]any{"order_id": placed.Order.ID})
		return render(c.Status(fiber.StatusBadGateway), "notfound", fiber.Map{
			"Message": "We could not start the payment. Your order number is " + placed.Order.ID + "; please contact support.",
		})
	default:
		return pageError(c, err, "Checkout is not available")
	}
	log.Audit(c, "order.place", map[string]any{
		"order_id": placed.Order.ID, "total": placed.Order.Total.StringFixed(2), "payment": placed.Order.PaymentMethod,
	})
	if placed.RedirectURL != "" {
		return c.Redirect(placed.RedirectURL, fiber.StatusSeeOther)
	}
	return c.Redirect("/checkout/confirmation?order=" + placed.Order.ID)
}

// GET /checkout/confirmation?order=
func (h *CheckoutHandler) Confirmation(c *fiber.Ctx) error {
	d, err := h.Checkout.Confirmation(c.UserContext(), ensureSID(c), c.Query("order"))
	if err != nil {
		return pageError(c, err, "Order not found")
	}
	return render(c, "checkout_confirmation", fiber.Map{"Detail": d, "Order": d.Order, "Step": domain.StepConfirmation})
}

// CreateSession places the reviewed checkout of the sid cookie's session and
// returns the hosted payment page.
// POST /api/checkout/create-session
func (h *CheckoutHandler) CreateSession(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	if sid == "" {
		return reply(c, fiber.StatusBadRequest, "no checkout session", nil)
	}
	placed, err := h.Checkout.CreateSession(c.UserContext(), sid, currentUserID(c))
	if err != nil {
		return apiError(c, "checkout.session", err)
	}
	log.Audit(c, "order.place", map[string]any{"order_id": placed.Order.ID, "payment": placed.Order.PaymentMethod})
	return reply(c, fiber.StatusCreated, "checkout session created", fiber.Map{
		"orderId": placed.Order.ID, "sessionId": placed.SessionID, "url": placed.RedirectURL,
	})
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// Webhook applies payment provider events.
// POST /api/webhooks/payments
func (h *CheckoutHandler) Webhook(c *fiber.Ctx) error {
	got := c.Get("X-Webhook-Token")
	if h.WebhookToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookToken)) != 1 {
		log.Security(c, "webhook.auth.fail", nil)
		return reply(c, fiber.StatusUnauthorized, "invalid webhook token", nil)
	}
	var ev webhookEvent
	if err := c.BodyParser(&ev); err != nil || ev.Type == "" {
		return badBody(c)
	}
	changed, err := h.Orders.HandlePaymentEvent(c.UserContext(), ev.Type, ev.Data.Object.ID)
	if err != nil {
		return apiError(c, "webhook.payment", err)
	}
	log.Info(c, "webhook.payment", map[string]any{"type": ev.Type, "session": ev.Data.Object.ID, "changed": changed})
	return reply(c, fiber.StatusOK, "received", fiber.Map{"changed": changed})
}
