package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"synergyfoods/internal/log"
	"synergyfoods/internal/services"
	"synergyfoods/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) show(c *fiber.Ctx, status int, errMsg string) error {
	cv, err := h.Cart.View(c.UserContext(), ensureSID(c))
	if err != nil {
		return err
	}
	return render(c.Status(status), "cart", fiber.Map{"Cart": cv, "Err": errMsg, "MaxQty": validate.MaxQty})
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return h.show(c, fiber.StatusOK, "")
}

// POST /cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).SendString("missing productId")
	}
	qty := validate.Qty(c.FormValue("qty"))
	if err := h.Cart.Add(c.UserContext(), sid, productID, qty); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return notFound(c, "This item is no longer available")
		case errors.Is(err, services.ErrOutOfStock):
			return h.show(c, fiber.StatusConflict, "Sorry, that item is out of stock.")
		}
		return err
	}
	log.Info(c, "cart.add", map[string]any{"product_id": productID, "qty": qty})
	return c.Redirect("/cart")
}

// POST /cart/update sets a line's quantity; 0 removes it.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.FormValue("productId"))
	qty, err := strconv.Atoi(strings.TrimSpace(c.FormValue("qty")))
	if !ok || err != nil {
		log.Security(c, "validation.fail", map[string]any{"field": "qty"})
		return h.show(c, fiber.StatusBadRequest, "Enter a quantity between 0 and 50.")
	}
	if err := h.Cart.SetQty(c.UserContext(), sid, productID, qty); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return h.show(c, fiber.StatusNotFound, "That item is no longer in your cart.")
		}
		return err
	}
	return c.Redirect("/cart")
}

// POST /cart/remove
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing productId")
	}
	if err := h.Cart.Remove(c.UserContext(), sid, productID); err != nil {
		return err
	}
	return c.Redirect("/cart")
}
