package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/log"
	"synergyfoods/internal/services"
	"synergyfoods/internal/validate"
)

// AccountHandler serves /account pages (session) and /api/account (bearer).
// Both are mounted behind a guard that sets the user.
type AccountHandler struct {
	Account *services.AccountService
}

func (h *AccountHandler) ProfilePage(c *fiber.Ctx) error {
	return render(c, "account_profile", fiber.Map{"Profile": currentUser(c)})
}

func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form")
	}
	updated, err := h.Account.UpdateProfile(c.UserContext(), u.ID, in)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return render(c.Status(fiber.StatusUnprocessableEntity), "account_profile", fiber.Map{"Profile": u, "Errors": fe})
		}
		return err
	}
	log.Audit(c, "account.profile.update", nil)
	return render(c, "account_profile", fiber.Map{"Profile": updated, "Saved": true})
}

func (h *AccountHandler) addressesPage(c *fiber.Ctx, status int, extra fiber.Map) error {
	addrs, err := h.Account.ListAddresses(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}
	data := fiber.Map{"Addresses": addrs}
	for k, v := range extra {
		data[k] = v
	}
	return render(c.Status(status), "account_addresses", data)
}

func (h *AccountHandler) AddressesPage(c *fiber.Ctx) error {
	return h.addressesPage(c, fiber.StatusOK, nil)
}

// POST /account/addresses and POST /account/addresses/:id
func (h *AccountHandler) SaveAddress(c *fiber.Ctx) error {
	var in services.AddressInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form")
	}
	uid := currentUserID(c)
	var err error
	if id := c.Params("id"); id != "" {
		_, err = h.Account.UpdateAddress(c.UserContext(), uid, id, in)
	} else {
		_, err = h.Account.CreateAddress(c.UserContext(), uid, in)
	}
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return h.addressesPage(c, fiber.StatusUnprocessableEntity, fiber.Map{"Errors": fe, "In": in})
		}
		return pageError(c, err, "Address not found")
	}
	log.Audit(c, "account.address.save", map[string]any{"address_id": c.Params("id")})
	return c.Redirect("/account/addresses")
}

// POST /account/addresses/:id/delete
func (h *AccountHandler) DeleteAddress(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Account.DeleteAddress(c.UserContext(), currentUserID(c), id); err != nil {
		return pageError(c, err, "Address not found")
	}
	log.Audit(c, "account.address.delete", map[string]any{"address_id": id})
	return c.Redirect("/account/addresses")
}

// POST /account/addresses/:id/default
func (h *AccountHandler) DefaultAddress(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Account.SetDefaultAddress(c.UserContext(), currentUserID(c), id); err != nil {
		return pageError(c, err, "Address not found")
	}
	return c.Redirect("/account/addresses")
}

func (h *AccountHandler) OrdersPage(c *fiber.Ctx) error {
	orders, err := h.Account.ListOrders(c.UserContext(), currentUserID(c))
	if err != nil {
		log.Error(c, "orders.history.fail", err, nil)
		return render(c.Status(fiber.StatusInternalServerError), "notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "account_orders", fiber.Map{"Orders": orders})
}

func (h *AccountHandler) OrderPage(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Order not found")
	}
	d, err := h.Account.Order(c.UserContext(), currentUserID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			log.Security(c, "access.denied.order", map[string]any{"order_id": id})
		}
		return pageError(c, err, "Order not found")
	}
	return render(c, "order_detail", fiber.Map{"Detail": d, "Order": d.Order})
}

// Track is the public order lookup.
// GET /track?order=&email=
func (h *AccountHandler) Track(c *fiber.Ctx) error {
	orderID, email := c.Query("order"), c.Query("email")
	if email == "" {
		return render(c, "track", fiber.Map{"OrderID": orderID})
	}
	d, err := h.Account.Track(c.UserContext(), orderID, email)
	if err != nil {
		if _, ok := formErrors(err); ok {
			return render(c.Status(fiber.StatusBadRequest), "track", fiber.Map{"OrderID": orderID, "Err": "Enter your order number and email."})
		}
		if errors.Is(err, services.ErrNotFound) {
			log.Security(c, "track.miss", map[string]any{"order_id": orderID})
			return render(c.Status(fiber.StatusNotFound), "track", fiber.Map{"OrderID": orderID, "Email": email, "Err": "No order matches that number and email."})
		}
		return err
	}
	return render(c, "order_detail", fiber.Map{"Detail": d, "Order": d.Order, "Public": true})
}

// ---- /api/account ----

func (h *AccountHandler) APIProfile(c *fiber.Ctx) error {
	return reply(c, fiber.StatusOK, "ok", currentUser(c))
}

func (h *AccountHandler) APIUpdateProfile(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	u, err := h.Account.UpdateProfile(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return apiError(c, "account.profile.update", err)
	}
	log.Audit(c, "account.profile.update", nil)
	return reply(c, fiber.StatusOK, "profile updated", u)
}

func (h *AccountHandler) APIAddresses(c *fiber.Ctx) error {
	addrs, err := h.Account.ListAddresses(c.UserContext(), currentUserID(c))
	if err != nil {
		return apiError(c, "account.address.list", err)
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	return reply(c, fiber.StatusOK, "ok", addrs)
}

func (h *AccountHandler) APICreateAddress(c *fiber.Ctx) error {
	var in services.AddressInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	a, err := h.Account.CreateAddress(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return apiError(c, "account.address.create", err)
	}
	log.Audit(c, "account.address.create", map[string]any{"address_id": a.ID})
	return reply(c, fiber.StatusCreated, "address created", a)
}

func (h *AccountHandler) APIUpdateAddress(c *fiber.Ctx) error {
	var in services.AddressInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	a, err := h.Account.UpdateAddress(c.UserContext(), currentUserID(c), c.Params("id"), in)
	if err != nil {
		return apiError(c, "account.address.update", err)
	}
	log.Audit(c, "account.address.update", map[string]any{"address_id": a.ID})
	return reply(c, fiber.StatusOK, "address updated", a)
}

func (h *AccountHandler) APIDeleteAddress(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Account.DeleteAddress(c.UserContext(), currentUserID(c), id); err != nil {
		return apiError(c, "account.address.delete", err)
	}
	log.Audit(c, "account.address.delete", map[string]any{"address_id": id})
	return reply(c, fiber.StatusOK, "address deleted", nil)
}

func (h *AccountHandler) APIDefaultAddress(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Account.SetDefaultAddress(c.UserContext(), currentUserID(c), id); err != nil {
		return apiError(c, "account.address.default", err)
	}
	a, err := h.Account.Address(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return apiError(c, "account.address.default", err)
	}
	return reply(c, fiber.StatusOK, "default address set", a)
}

func (h *AccountHandler) APIOrders(c *fiber.Ctx) error {
	orders, err := h.Account.ListOrders(c.UserContext(), currentUserID(c))
	if err != nil {
		return apiError(c, "account.orders", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return reply(c, fiber.StatusOK, "ok", orders)
}

func (h *AccountHandler) APIOrder(c *fiber.Ctx) error {
	d, err := h.Account.Order(c.UserContext(), currentUserID(c), c.Params("id"))
	if err != nil {
		return apiError(c, "account.order", err)
	}
	return reply(c, fiber.StatusOK, "ok", d)
}
