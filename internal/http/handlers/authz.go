package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"synergyfoods/internal/auth"
	"synergyfoods/internal/domain"
	applog "synergyfoods/internal/log"
	"synergyfoods/internal/services"
)

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   c.Protocol() == "https",
		})
	}
	return sid
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func currentUserID(c *fiber.Ctx) string {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return ""
}

func setUser(c *fiber.Ctx, u *domain.User) {
	c.Locals("user", u)
	c.Locals("user_id", u.ID)
}

// LoadUser attaches the signed-in user, if any, for templates and handlers.
func LoadUser(a *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := a.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				setUser(c, u)
			}
		}
		return c.Next()
	}
}

func loginRedirect(c *fiber.Ctx) error {
	return c.Redirect("/login?next=" + url.QueryEscape(c.OriginalURL()))
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser(a *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return loginRedirect(c)
		}
		u := currentUser(c)
		if u == nil {
			var err error
			if u, err = a.CurrentUser(c.UserContext(), sid); err != nil || u == nil {
				return loginRedirect(c)
			}
			setUser(c, u)
		}
		_ = a.Touch(c.UserContext(), sid)
		return c.Next()
	}
}

func RequireAdmin(a *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := a.CurrentUser(c.UserContext(), sid)
		if err != nil || !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"sid": sid})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		setUser(c, u)
		return c.Next()
	}
}

func bearerUser(c *fiber.Ctx, a *services.AuthService) (*domain.User, error) {
	tok, err := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return nil, err
	}
	return a.UserFromToken(c.UserContext(), tok)
}

// RequireToken guards the JSON API with a bearer token from /api/auth/token.
func RequireToken(a *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := bearerUser(c, a)
		if err != nil {
			applog.Security(c, "api.auth.fail", nil)
			return reply(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		setUser(c, u)
		return c.Next()
	}
}

func RequireAdminToken(a *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := bearerUser(c, a)
		if err != nil {
			applog.Security(c, "api.auth.fail", nil)
			return reply(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": u.ID})
			return reply(c, fiber.StatusForbidden, "admin role required", nil)
		}
		setUser(c, u)
		return c.Next()
	}
}
