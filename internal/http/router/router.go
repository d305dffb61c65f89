package router

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"

	"synergyfoods/internal/http/handlers"
	applog "synergyfoods/internal/log"
)

type Options struct {
	TemplatesDir string
	StaticDir    string
	MediaDir     string
	Production   bool

	// Requests per minute per IP; 0 uses the defaults.
	RateLimit  int
	LoginLimit int

	// AccessLog enables Fiber's request logger.
	AccessLog bool
}

func money(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }

// errorHandler logs the error and shows a friendly message without internals.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	msg := "Something went wrong. Please try again."
	switch {
	case code == fiber.StatusNotFound:
		msg = "Page not found"
	case code == fiber.StatusRequestEntityTooLarge:
		msg = "Request too large"
	case code >= 500:
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		if code >= 500 {
			msg = "internal error"
		}
		return c.Status(code).JSON(fiber.Map{"message": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// New builds the application with middleware and every route.
func New(deps *handlers.Deps, opt Options) *fiber.App {
	if opt.RateLimit == 0 {
		opt.RateLimit = 120
	}
	if opt.LoginLimit == 0 {
		opt.LoginLimit = 5
	}
	engine := html.New(opt.TemplatesDir, ".html")
	engine.AddFunc("money", money)
	engine.Reload(!opt.Production)

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    1 << 20,
		ErrorHandler: errorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	if opt.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(handlers.LoadUser(deps.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        opt.RateLimit,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/") || p == "/api/webhooks/payments"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   opt.Production,
		ContextKey:     "csrf",
		Expiration:     2 * time.Hour,
		// The API authenticates with bearer tokens or provider secrets, not cookies.
		Next: isAPI,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	if opt.StaticDir != "" {
		app.Static("/static", opt.StaticDir)
	}
	if opt.MediaDir != "" {
		app.Get("/media/*", media(opt.MediaDir))
	}

	auth := deps.Auth
	authH := deps.AuthHandler
	store := deps.StoreHandler
	cart := deps.CartHandler
	co := deps.CheckoutHandler
	acct := deps.AccountHandler
	admin := deps.AdminHandler

	// Storefront
	app.Get("/", store.Home)
	app.Get("/search", limiter.New(limiter.Config{Max: 30, Expiration: time.Minute}), store.Search)
	app.Get("/c/:cat", store.Category)
	app.Get("/c/:cat/:sub", store.Subcategory)
	app.Get("/c/:cat/:sub/:type", store.ProductType)
	app.Get("/p/:slug", store.Product)

	// Cart & checkout
	app.Get("/cart", cart.View)
	app.Post("/cart", cart.Add)
	app.Post("/cart/update", cart.Update)
	app.Post("/cart/remove", cart.Remove)
	app.Get("/checkout", co.Start)
	app.Get("/checkout/shipping", co.ShippingPage)
	app.Post("/checkout/shipping", co.SubmitShipping)
	app.Get("/checkout/payment", co.PaymentPage)
	app.Post("/checkout/payment", co.SubmitPayment)
	app.Get("/checkout/review", co.ReviewPage)
	app.Post("/checkout/back", co.Back)
	app.Post("/checkout/place", co.Place)
	app.Get("/checkout/confirmation", co.Confirmation)
	app.Get("/track", limiter.New(limiter.Config{Max: 20, Expiration: time.Minute}), acct.Track)

	// Auth routes (login throttled)
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        opt.LoginLimit,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Get("/register", authH.RegisterForm)
	app.Post("/register", authH.Register)
	app.Post("/logout", authH.Logout)

	// Customer account
	account := app.Group("/account", handlers.RequireUser(auth))
	account.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/account/profile") })
	account.Get("/profile", acct.ProfilePage)
	account.Post("/profile", acct.UpdateProfile)
	account.Get("/addresses", acct.AddressesPage)
	account.Post("/addresses", acct.SaveAddress)
	account.Post("/addresses/:id", acct.SaveAddress)
	account.Post("/addresses/:id/delete", acct.DeleteAddress)
	account.Post("/addresses/:id/default", acct.DefaultAddress)
	account.Get("/orders", acct.OrdersPage)
	account.Get("/orders/:id", acct.OrderPage)

	// Admin pages
	adm := app.Group("/admin", handlers.RequireAdmin(auth))
	adm.Get("/", admin.Dashboard)
	adm.Get("/orders", admin.OrdersPage)
	adm.Get("/orders/:id", admin.OrderPage)
	adm.Post("/orders/:id/status", admin.UpdateOrderStatus)
	adm.Get("/catalog", admin.CatalogPage)
	adm.Post("/categories", admin.CreateCategory)
	adm.Post("/categories/:id/active", admin.ToggleCategory)
	adm.Post("/products/:id/active", admin.ToggleProduct)
	adm.Get("/banners", admin.BannersPage)
	adm.Post("/banners/:id/active", admin.ToggleBanner)
	adm.Post("/promotional-banners/:id/active", admin.TogglePromo)

	// API
	api := app.Group("/api")
	api.Post("/auth/token", limiter.New(limiter.Config{
		Max:        opt.LoginLimit,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.token.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "rate limit exceeded, retry later"})
		},
	}), authH.Token)
	api.Post("/checkout/create-session", co.CreateSession)
	api.Post("/webhooks/payments", co.Webhook)

	me := api.Group("/account", handlers.RequireToken(auth))
	me.Get("/profile", acct.APIProfile)
	me.Put("/profile", acct.APIUpdateProfile)
	me.Get("/addresses", acct.APIAddresses)
	me.Post("/addresses", acct.APICreateAddress)
	me.Put("/addresses/:id", acct.APIUpdateAddress)
	me.Delete("/addresses/:id", acct.APIDeleteAddress)
	me.Post("/addresses/:id/default", acct.APIDefaultAddress)
	me.Get("/orders", acct.APIOrders)
	me.Get("/orders/:id", acct.APIOrder)

	dash := api.Group("", handlers.RequireAdminToken(auth))
	deps.DashboardHandler.Mount(dash)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "not found"})
		}
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return app
}

// media serves files under dir and refuses traversal attempts.
func media(dir string) fiber.Handler {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		// Block encoded traversal attempts as well as raw .. or null bytes
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(dir, clean), true)
	}
}
