package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "synergyfoods/internal/log"
	"synergyfoods/internal/payment"
	"synergyfoods/internal/services"
	"synergyfoods/internal/validate"
)

// envelope is the JSON body of every /api response.
type envelope struct {
	Message string                `json:"message"`
	Data    any                   `json:"data,omitempty"`
	Errors  []validate.FieldError `json:"errors,omitempty"`
}

func reply(c *fiber.Ctx, status int, msg string, data any) error {
	return c.Status(status).JSON(envelope{Message: msg, Data: data})
}

func badBody(c *fiber.Ctx) error {
	return reply(c, fiber.StatusBadRequest, "malformed request body", nil)
}

// apiError maps service errors to status codes. Unknown errors are logged
// and reported without detail.
func apiError(c *fiber.Ctx, action string, err error) error {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(envelope{Message: "validation failed", Errors: ve.Fields})
	case errors.Is(err, services.ErrNotFound):
		return reply(c, fiber.StatusNotFound, "not found", nil)
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrOutOfStock):
		return reply(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, services.ErrEmptyCart), errors.Is(err, services.ErrStepOrder):
		return reply(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrInvalid):
		return reply(c, fiber.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, services.ErrBadCreds):
		return reply(c, fiber.StatusUnauthorized, services.ErrBadCreds.Error(), nil)
	case errors.Is(err, services.ErrForbidden):
		return reply(c, fiber.StatusForbidden, "forbidden", nil)
	case errors.Is(err, payment.ErrProvider):
		applog.Error(c, action+".fail", err, nil)
		return reply(c, fiber.StatusBadGateway, "payment provider unavailable", nil)
	}
	applog.Error(c, action+".fail", err, nil)
	return reply(c, fiber.StatusInternalServerError, "internal error", nil)
}
