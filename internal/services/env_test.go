package services_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/auth"
	"synergyfoods/internal/cache"
	"synergyfoods/internal/events"
	"synergyfoods/internal/payment"
	"synergyfoods/internal/repos"
	"synergyfoods/internal/services"
)

// fakeCache is an in-memory cache.Store that counts invalidations.
type fakeCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	sets        int
	invalidated int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.data[key]; ok {
		return b, nil
	}
	return nil, cache.ErrMiss
}

func (f *fakeCache) Set(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = b
	f.sets++
	return nil
}

func (f *fakeCache) DeleteByPrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
		}
	}
	f.invalidated++
	return nil
}

type env struct {
	db       *sqlx.DB
	cache    *fakeCache
	events   *events.Recorder
	catalog  *services.CatalogService
	banners  *services.BannerService
	auth     *services.AuthService
	account  *services.AccountService
	cart     *services.CartService
	checkout *services.CheckoutService
	orders   *services.OrderService
}

func newEnv(t *testing.T, gw payment.Gateway) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cats := repos.NewCategoryRepo(db)
	subs := repos.NewSubcategoryRepo(db)
	types := repos.NewProductTypeRepo(db)
	prods := repos.NewProductRepo(db)
	users := repos.NewUserRepo(db)
	addrs := repos.NewAddressRepo(db)
	carts := repos.NewCartRepo(db)
	orders := repos.NewOrderRepo(db)

	e := &env{db: db, cache: newFakeCache(), events: &events.Recorder{}}
	e.catalog = services.NewCatalogService(cats, subs, types, prods, e.cache)
	e.banners = services.NewBannerService(repos.NewBannerRepo(db), repos.NewPromoBannerRepo(db), e.cache)
	e.auth = services.NewAuthService(users, auth.NewTokens("test-secret", time.Hour))
	e.account = services.NewAccountService(users, addrs, orders)
	e.cart = services.NewCartService(carts, prods)
	e.checkout = services.NewCheckoutService(repos.NewCheckoutRepo(db), carts, orders, addrs, users, gw, e.events, "http://shop.test")
	e.orders = services.NewOrderService(orders, e.events)
	return e
}
