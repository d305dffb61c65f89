package handlers

import (
	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/auth"
	"synergyfoods/internal/cache"
	"synergyfoods/internal/config"
	"synergyfoods/internal/events"
	"synergyfoods/internal/payment"
	"synergyfoods/internal/repos"
	"synergyfoods/internal/services"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler      *AuthHandler
	StoreHandler     *StoreHandler
	CartHandler      *CartHandler
	CheckoutHandler  *CheckoutHandler
	AccountHandler   *AccountHandler
	AdminHandler     *AdminHandler
	DashboardHandler *DashboardHandler
}

// NewDeps wires repos, services and handlers. A nil cache, publisher or
// gateway falls back to the no-op implementation.
func NewDeps(db *sqlx.DB, cfg config.Config, c cache.Store, pub events.Publisher, gw payment.Gateway) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	subRepo := repos.NewSubcategoryRepo(db)
	typeRepo := repos.NewProductTypeRepo(db)
	prodRepo := repos.NewProductRepo(db)
	userRepo := repos.NewUserRepo(db)
	addrRepo := repos.NewAddressRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	authSvc := services.NewAuthService(userRepo, auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL))
	catalogSvc := services.NewCatalogService(catRepo, subRepo, typeRepo, prodRepo, c)
	bannerSvc := services.NewBannerService(repos.NewBannerRepo(db), repos.NewPromoBannerRepo(db), c)
	accountSvc := services.NewAccountService(userRepo, addrRepo, orderRepo)
	cartSvc := services.NewCartService(cartRepo, prodRepo)
	checkoutSvc := services.NewCheckoutService(repos.NewCheckoutRepo(db), cartRepo, orderRepo, addrRepo, userRepo, gw, pub, cfg.PublicBaseURL)
	orderSvc := services.NewOrderService(orderRepo, pub)

	return &Deps{
		Auth:            authSvc,
		AuthHandler:     &AuthHandler{Auth: authSvc},
		StoreHandler:    &StoreHandler{Catalog: catalogSvc, Banners: bannerSvc},
		CartHandler:     &CartHandler{Cart: cartSvc},
		CheckoutHandler: &CheckoutHandler{Checkout: checkoutSvc, Cart: cartSvc, Account: accountSvc, Orders: orderSvc, WebhookToken: cfg.PaymentWebhookToken},
		AccountHandler:  &AccountHandler{Account: accountSvc},
		AdminHandler:    &AdminHandler{Catalog: catalogSvc, Banners: bannerSvc, Orders: orderSvc},
		DashboardHandler: &DashboardHandler{
			Catalog: catalogSvc, Banners: bannerSvc, Orders: orderSvc,
		},
	}
}
