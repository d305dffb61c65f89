package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/config"
	"synergyfoods/internal/http/handlers"
	"synergyfoods/internal/http/router"
	applog "synergyfoods/internal/log"
	"synergyfoods/internal/repos"
)

const webhookToken = "whsec_test"

func newApp(t *testing.T) (*fiber.App, *sqlx.DB) {
	t.Helper()
	return newAppWith(t, router.Options{})
}

func newAppWith(t *testing.T, opt router.Options) (*fiber.App, *sqlx.DB) {
	t.Helper()
	applog.SetOutput(io.Discard)
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Config{
		JWTSecret:           "test-secret",
		JWTTTL:              time.Hour,
		PaymentWebhookToken: webhookToken,
		PublicBaseURL:       "http://shop.test",
	}
	deps := handlers.NewDeps(db, cfg, nil, nil, nil)
	opt.TemplatesDir = "../../../web/templates"
	opt.MediaDir = "../../../web/media"
	return router.New(deps, opt), db
}

// client replays cookies between requests the way a browser would.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app, cookies: map[string]string{}}
}

func (cl *client) send(req *http.Request) *http.Response {
	cl.t.Helper()
	for k, v := range cl.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := cl.app.Test(req, -1)
	if err != nil {
		cl.t.Fatal(err)
	}
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now())) {
			delete(cl.cookies, ck.Name)
			continue
		}
		cl.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (cl *client) get(path string) *http.Response {
	cl.t.Helper()
	return cl.send(httptest.NewRequest(http.MethodGet, path, nil))
}

// post submits a form with the CSRF token from the csrf_ cookie.
func (cl *client) post(path string, form url.Values) *http.Response {
	cl.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf") == "" {
		form.Set("csrf", cl.cookies["csrf_"])
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.send(req)
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (cl *client) api(method, path, token string, body any) (int, envelope) {
	cl.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			cl.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := cl.send(req)
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			cl.t.Fatalf("%s %s: not json: %s", method, path, raw)
		}
	}
	return resp.StatusCode, env
}

func (cl *client) token(email string) string {
	cl.t.Helper()
	code, env := cl.api(http.MethodPost, "/api/auth/token", "", map[string]string{"email": email, "password": "Passw0rd!"})
	if code != http.StatusOK {
		cl.t.Fatalf("token for %s: %d %s", email, code, env.Message)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil || out.Token == "" {
		cl.t.Fatalf("no token in %s", env.Data)
	}
	return out.Token
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func wantStatus(t *testing.T, resp *http.Response, code int) {
	t.Helper()
	if resp.StatusCode != code {
		t.Fatalf("want %d, got %d: %s", code, resp.StatusCode, body(t, resp))
	}
}

func TestHealthAndNotFound(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)

	wantStatus(t, cl.get("/healthz"), http.StatusOK)

	resp := cl.get("/no/such/page")
	wantStatus(t, resp, http.StatusNotFound)
	if !strings.Contains(body(t, resp), "Page not found") {
		t.Fatal("404 page missing message")
	}
	wantStatus(t, cl.get("/p/not-a-real-product"), http.StatusNotFound)
}

func TestStorefrontPagesRender(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)

	resp := cl.get("/")
	wantStatus(t, resp, http.StatusOK)
	home := body(t, resp)
	for _, want := range []string{"Fresh Produce", "Strawberries", "Free shipping over $50"} {
		if !strings.Contains(home, want) {
			t.Fatalf("home page missing %q", want)
		}
	}

	resp = cl.get("/c/fresh-produce/fruit?sort=price_asc")
	wantStatus(t, resp, http.StatusOK)
	listing := body(t, resp)
	if strings.Index(listing, "Navel Oranges") > strings.Index(listing, "Strawberries") {
		t.Fatal("price_asc should list oranges before strawberries")
	}
	if strings.Contains(listing, "Organic Kale") {
		t.Fatal("kale is not in the fruit subcategory")
	}

	resp = cl.get("/p/strawberries")
	wantStatus(t, resp, http.StatusOK)
	if s := body(t, resp); !strings.Contains(s, "$4.99") || !strings.Contains(s, "$5.99") {
		t.Fatal("product page should show price and compare-at price")
	}

	resp = cl.get("/search?q=cheddar")
	wantStatus(t, resp, http.StatusOK)
	if !strings.Contains(body(t, resp), "Aged Cheddar") {
		t.Fatal("search should find cheddar")
	}
}

func TestFriendlyErrorPageHidesInternals(t *testing.T) {
	app, db := newApp(t)
	cl := newClient(t, app)
	_ = db.Close()

	resp := cl.get("/")
	wantStatus(t, resp, http.StatusInternalServerError)
	s := body(t, resp)
	if !strings.Contains(s, "Something went wrong") {
		t.Fatalf("friendly message missing; body=%s", s)
	}
	if strings.Contains(s, "closed") || strings.Contains(s, "sql") {
		t.Fatalf("internal details leaked; body=%s", s)
	}
}

func TestMediaBlocksTraversal(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)
	for _, p := range []string{"/media/..%2f..%2fgo.mod", "/media/%2e%2e/secret"} {
		if resp := cl.get(p); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: want 404, got %d", p, resp.StatusCode)
		}
	}
}

func TestAdminPagesRequireAdminRole(t *testing.T) {
	app, db := newApp(t)
	users := repos.NewUserRepo(db)
	ctx := context.Background()

	resp := newClient(t, app).get("/admin")
	if resp.StatusCode != http.StatusFound || !strings.HasPrefix(resp.Header.Get("Location"), "/login") {
		t.Fatalf("anonymous should be sent to login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	if err := users.BindSession(ctx, "sid-user", "u-alice"); err != nil {
		t.Fatal(err)
	}
	alice := newClient(t, app)
	alice.cookies["sid"] = "sid-user"
	wantStatus(t, alice.get("/admin"), http.StatusForbidden)

	if err := users.BindSession(ctx, "sid-admin", "u-admin"); err != nil {
		t.Fatal(err)
	}
	admin := newClient(t, app)
	admin.cookies["sid"] = "sid-admin"
	for _, p := range []string{"/admin", "/admin/orders", "/admin/catalog", "/admin/banners"} {
		wantStatus(t, admin.get(p), http.StatusOK)
	}
}

func TestLoginFlow(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)
	wantStatus(t, cl.get("/login"), http.StatusOK)
	if cl.cookies["csrf_"] == "" {
		t.Fatal("login form should set the csrf cookie")
	}

	resp := cl.post("/login", url.Values{"email": {"alice@synergyfoods.test"}, "password": {"Wr0ngPass!"}})
	wantStatus(t, resp, http.StatusUnauthorized)
	if !strings.Contains(body(t, resp), "Invalid email or password") {
		t.Fatal("generic failure message missing")
	}

	resp = cl.post("/login", url.Values{
		"email": {"alice@synergyfoods.test"}, "password": {"Passw0rd!"}, "next": {"//evil.test"},
	})
	wantStatus(t, resp, http.StatusFound)
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("open redirect not blocked: %q", loc)
	}

	resp = cl.get("/account/profile")
	wantStatus(t, resp, http.StatusOK)
	if !strings.Contains(body(t, resp), "alice@synergyfoods.test") {
		t.Fatal("profile should show the signed-in email")
	}

	wantStatus(t, cl.post("/logout", nil), http.StatusFound)
	resp = cl.get("/account/profile")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("logged out user should be redirected, got %d", resp.StatusCode)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	app, _ := newAppWith(t, router.Options{LoginLimit: 2})
	cl := newClient(t, app)
	wantStatus(t, cl.get("/login"), http.StatusOK)
	form := url.Values{"email": {"bob@synergyfoods.test"}, "password": {"Wr0ngPass!"}}
	for i := 0; i < 2; i++ {
		wantStatus(t, cl.post("/login", form), http.StatusUnauthorized)
	}
	resp := cl.post("/login", form)
	wantStatus(t, resp, http.StatusTooManyRequests)
	if !strings.Contains(body(t, resp), "Too many attempts") {
		t.Fatal("rate limit message missing")
	}
}

func TestBodyLimit(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)
	big := strings.Repeat("a", 2<<20)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(`{"email":"`+big+`"}`))
	req.Header.Set("Content-Type", "application/json")
	if code := cl.send(req).StatusCode; code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", code)
	}
}

func TestCSRFRejectsForgedForm(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)
	wantStatus(t, cl.get("/cart"), http.StatusOK)

	resp := cl.post("/cart", url.Values{"productId": {"prod-milk"}, "qty": {"1"}, "csrf": {"forged"}})
	wantStatus(t, resp, http.StatusForbidden)
	if !strings.Contains(body(t, resp), "Security check failed") {
		t.Fatal("csrf failure page missing")
	}
}

func TestDashboardAPIRequiresAdminToken(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)

	if code, _ := cl.api(http.MethodGet, "/api/categories", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("no token: want 401, got %d", code)
	}
	if code, _ := cl.api(http.MethodGet, "/api/categories", "garbage", nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token: want 401, got %d", code)
	}
	if code, _ := cl.api(http.MethodGet, "/api/categories", cl.token("alice@synergyfoods.test"), nil); code != http.StatusForbidden {
		t.Fatalf("customer token: want 403, got %d", code)
	}
	code, env := cl.api(http.MethodGet, "/api/categories", cl.token("admin@synergyfoods.test"), nil)
	if code != http.StatusOK {
		t.Fatalf("admin token: want 200, got %d", code)
	}
	var cats []struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(env.Data, &cats); err != nil || len(cats) != 3 {
		t.Fatalf("want 3 seeded categories, got %s", env.Data)
	}
}

func TestDashboardCategoryCRUD(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)
	tok := cl.token("admin@synergyfoods.test")

	code, env := cl.api(http.MethodPost, "/api/categories", tok, map[string]any{})
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("empty body: want 422, got %d", code)
	}
	if len(env.Errors) == 0 || env.Errors[0].Field != "name" {
		t.Fatalf("want a name error, got %+v", env.Errors)
	}

	code, env = cl.api(http.MethodPost, "/api/categories", tok, map[string]any{"name": "Pantry Staples"})
	if code != http.StatusCreated {
		t.Fatalf("create: want 201, got %d %s", code, env.Message)
	}
	var cat struct {
		ID       string `json:"id"`
		Slug     string `json:"slug"`
		IsActive bool   `json:"isActive"`
	}
	if err := json.Unmarshal(env.Data, &cat); err != nil {
		t.Fatal(err)
	}
	if cat.Slug != "pantry-staples" || !cat.IsActive {
		t.Fatalf("unexpected category: %+v", cat)
	}

	if code, _ = cl.api(http.MethodPost, "/api/categories", tok, map[string]any{"name": "Pantry Staples"}); code != http.StatusConflict {
		t.Fatalf("duplicate slug: want 409, got %d", code)
	}
	if code, _ = cl.api(http.MethodPatch, "/api/categories/"+cat.ID+"/active", tok, map[string]any{"isActive": false}); code != http.StatusOK {
		t.Fatalf("deactivate: want 200, got %d", code)
	}
	if code, _ = cl.api(http.MethodDelete, "/api/categories/cat-produce", tok, nil); code != http.StatusConflict {
		t.Fatalf("delete with children: want 409, got %d", code)
	}
	if code, _ = cl.api(http.MethodDelete, "/api/categories/"+cat.ID, tok, nil); code != http.StatusOK {
		t.Fatalf("delete: want 200, got %d", code)
	}
	if code, _ = cl.api(http.MethodGet, "/api/categories/"+cat.ID, tok, nil); code != http.StatusNotFound {
		t.Fatalf("deleted category: want 404, got %d", code)
	}
}

func TestAccountAPI(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)

	if code, _ := cl.api(http.MethodGet, "/api/account/profile", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", code)
	}
	tok := cl.token("bob@synergyfoods.test")
	code, env := cl.api(http.MethodPost, "/api/account/addresses", tok, map[string]any{
		"fullName": "Bob Shopper", "line1": "1 Main St", "city": "Baltimore", "postalCode": "21201", "country": "US",
	})
	if code != http.StatusCreated {
		t.Fatalf("create address: want 201, got %d %s %+v", code, env.Message, env.Errors)
	}
	code, env = cl.api(http.MethodGet, "/api/account/addresses", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("list addresses: want 200, got %d", code)
	}
	var addrs []struct {
		IsDefault bool `json:"isDefault"`
	}
	if err := json.Unmarshal(env.Data, &addrs); err != nil || len(addrs) != 1 || !addrs[0].IsDefault {
		t.Fatalf("first address should be the default: %s", env.Data)
	}
}

func TestWebhookRequiresToken(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)
	event := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_unknown"}}}`)

	hook := func(token string, payload []byte) int {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("X-Webhook-Token", token)
		}
		return cl.send(req).StatusCode
	}
	if code := hook("", event); code != http.StatusUnauthorized {
		t.Fatalf("missing token: want 401, got %d", code)
	}
	if code := hook("nope", event); code != http.StatusUnauthorized {
		t.Fatalf("wrong token: want 401, got %d", code)
	}
	if code := hook(webhookToken, event); code != http.StatusNotFound {
		t.Fatalf("unknown session: want 404, got %d", code)
	}
	if code := hook(webhookToken, []byte(`{"type":"customer.created","data":{"object":{"id":"x"}}}`)); code != http.StatusOK {
		t.Fatalf("ignored event: want 200, got %d", code)
	}
}

// checkoutToReview fills the cart and walks the wizard up to the review step.
func checkoutToReview(t *testing.T, cl *client, paymentMethod string) {
	t.Helper()
	wantStatus(t, cl.get("/cart"), http.StatusOK)
	wantStatus(t, cl.post("/cart", url.Values{"productId": {"prod-milk"}, "qty": {"2"}}), http.StatusFound)

	resp := cl.get("/checkout")
	wantStatus(t, resp, http.StatusFound)
	if loc := resp.Header.Get("Location"); loc != "/checkout/shipping" {
		t.Fatalf("start should land on shipping, got %q", loc)
	}
	wantStatus(t, cl.get("/checkout/shipping"), http.StatusOK)

	resp = cl.get("/checkout/review")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/checkout/shipping" {
		t.Fatalf("skipping ahead should bounce to shipping, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	shipping := url.Values{
		"email": {"guest@example.com"}, "fullName": {"Guest Shopper"}, "line1": {"8223 Paint Branch Dr"},
		"city": {"College Park"}, "state": {"MD"}, "postalCode": {"20742"}, "country": {"US"},
		"shippingMethod": {"standard"},
	}
	bad := url.Values{}
	for k, v := range shipping {
		bad[k] = v
	}
	bad.Set("email", "not-an-email")
	wantStatus(t, cl.post("/checkout/shipping", bad), http.StatusUnprocessableEntity)

	resp = cl.post("/checkout/shipping", shipping)
	wantStatus(t, resp, http.StatusFound)
	if loc := resp.Header.Get("Location"); loc != "/checkout/payment" {
		t.Fatalf("want payment step, got %q", loc)
	}
	wantStatus(t, cl.post("/checkout/payment", url.Values{"paymentMethod": {paymentMethod}}), http.StatusFound)
	resp = cl.get("/checkout/review")
	wantStatus(t, resp, http.StatusOK)
	if !strings.Contains(body(t, resp), "8223 Paint Branch Dr") {
		t.Fatal("review should show the shipping address")
	}
}

func TestCheckoutCashOnDeliveryOverHTTP(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)
	checkoutToReview(t, cl, "cash_on_delivery")

	resp := cl.post("/checkout/place", nil)
	wantStatus(t, resp, http.StatusFound)
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/checkout/confirmation?order=") {
		t.Fatalf("want confirmation redirect, got %q", loc)
	}
	orderID := strings.TrimPrefix(loc, "/checkout/confirmation?order=")

	resp = cl.get(loc)
	wantStatus(t, resp, http.StatusOK)
	s := body(t, resp)
	if !strings.Contains(s, orderID) || !strings.Contains(s, "PLACED") {
		t.Fatalf("confirmation should show the placed order; body=%s", s)
	}

	// Another browser cannot read the confirmation.
	wantStatus(t, newClient(t, app).get(loc), http.StatusNotFound)

	wantStatus(t, cl.get("/track?order="+orderID+"&email=GUEST@example.com"), http.StatusOK)
	wantStatus(t, cl.get("/track?order="+orderID+"&email=someone@example.com"), http.StatusNotFound)

	resp = cl.get("/cart")
	wantStatus(t, resp, http.StatusOK)
	if strings.Contains(body(t, resp), "Whole Milk") {
		t.Fatal("cart should be empty after placing the order")
	}
}

func TestCardCheckoutPaidByWebhook(t *testing.T) {
	app, _ := newApp(t)
	cl := newClient(t, app)
	checkoutToReview(t, cl, "card")

	code, env := cl.api(http.MethodPost, "/api/checkout/create-session", "", nil)
	if code != http.StatusCreated {
		t.Fatalf("create-session: want 201, got %d %s", code, env.Message)
	}
	var sess struct {
		OrderID   string `json:"orderId"`
		SessionID string `json:"sessionId"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		t.Fatal(err)
	}
	if sess.OrderID == "" || sess.SessionID == "" || !strings.Contains(sess.URL, "order="+sess.OrderID) {
		t.Fatalf("bad session response: %+v", sess)
	}

	event := map[string]any{
		"type": "checkout.session.completed",
		"data": map[string]any{"object": map[string]string{"id": sess.SessionID}},
	}
	deliver := func() bool {
		b, _ := json.Marshal(event)
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Token", webhookToken)
		resp := cl.send(req)
		wantStatus(t, resp, http.StatusOK)
		var out envelope
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		var r struct {
			Changed bool `json:"changed"`
		}
		_ = json.Unmarshal(out.Data, &r)
		return r.Changed
	}
	if !deliver() {
		t.Fatal("first delivery should mark the order paid")
	}
	if deliver() {
		t.Fatal("redelivery must be a no-op")
	}

	code, env = cl.api(http.MethodGet, "/api/orders/"+sess.OrderID, cl.token("admin@synergyfoods.test"), nil)
	if code != http.StatusOK {
		t.Fatalf("get order: want 200, got %d", code)
	}
	var d struct {
		Order struct {
			Status string `json:"status"`
		} `json:"order"`
	}
	if err := json.Unmarshal(env.Data, &d); err != nil || d.Order.Status != "PAID" {
		t.Fatalf("want PAID, got %s", env.Data)
	}
}
