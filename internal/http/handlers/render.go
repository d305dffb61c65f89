package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"synergyfoods/internal/services"
	"synergyfoods/internal/validate"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	// Pick up the token the CSRF middleware put into Locals, falling back to
	// the cookie so forms never render with an empty hidden field.
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return render(c.Status(fiber.StatusNotFound), "notfound", fiber.Map{"Message": msg})
}

// pageError turns service errors into page responses. Anything unexpected
// goes to the app ErrorHandler, which logs it and shows a generic page.
func pageError(c *fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return notFound(c, msg)
	case errors.Is(err, services.ErrEmptyCart):
		return c.Redirect("/cart")
	case errors.Is(err, services.ErrStepOrder):
		return c.Redirect("/checkout")
	case errors.Is(err, services.ErrForbidden):
		return render(c.Status(fiber.StatusForbidden), "notfound", fiber.Map{"Message": "Access denied"})
	}
	return err
}

// formErrors extracts per-field messages for re-rendering a form.
func formErrors(err error) ([]validate.FieldError, bool) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}
