package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"synergyfoods/internal/log"
	"synergyfoods/internal/services"
	"synergyfoods/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
}

// safeNext only follows local paths after login.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return "/"
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": "", "Next": safeNext(c.Query("next"))})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	email := c.FormValue("email")
	pass := c.FormValue("password")
	next := safeNext(c.FormValue("next"))
	fail := func(reason string) error {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": reason})
		return render(c.Status(fiber.StatusUnauthorized), "login", fiber.Map{"Err": "Invalid email or password", "Email": email, "Next": next})
	}
	if _, ok := validate.Email(email); !ok {
		return fail("bad_format")
	}
	if !validate.Password(pass) {
		return fail("bad_password_format")
	}
	if _, err := h.Auth.Login(c.UserContext(), sid, email, pass); err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			return fail("bad_credentials")
		}
		return err
	}
	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect(next)
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form")
	}
	u, err := h.Auth.Register(c.UserContext(), sid, in)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			log.Security(c, "auth.register.fail", map[string]any{"email": in.Email})
			return render(c.Status(fiber.StatusUnprocessableEntity), "register", fiber.Map{"Errors": fe, "In": in})
		}
		return err
	}
	log.Audit(c, "auth.register", map[string]any{"user_id": u.ID})
	return c.Redirect("/account/profile")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	_ = h.Auth.Logout(c.UserContext(), sid)
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   c.Protocol() == "https",
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token exchanges credentials for an API bearer token.
// POST /api/auth/token
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var in tokenRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	tok, exp, u, err := h.Auth.IssueToken(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			log.Security(c, "auth.token.fail", map[string]any{"email": in.Email})
		}
		return apiError(c, "auth.token", err)
	}
	log.Audit(c, "auth.token.issue", map[string]any{"user_id": u.ID})
	return reply(c, fiber.StatusOK, "token issued", fiber.Map{
		"token":     tok,
		"expiresAt": exp.UTC().Format(time.RFC3339),
		"user":      u,
	})
}
