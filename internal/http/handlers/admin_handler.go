package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"synergyfoods/internal/domain"
	applog "synergyfoods/internal/log"
	"synergyfoods/internal/services"
	"synergyfoods/internal/validate"
)

// AdminHandler serves the /admin pages. Catalog editing beyond toggles and
// quick-create goes through the dashboard API.
type AdminHandler struct {
	Catalog *services.CatalogService
	Banners *services.BannerService
	Orders  *services.OrderService
}

var orderStatuses = []string{
	domain.OrderPendingPayment, domain.OrderPlaced, domain.OrderPaid, domain.OrderPaymentFailed,
	domain.OrderProcessing, domain.OrderShipped, domain.OrderDelivered, domain.OrderCancelled,
}

func validStatus(s string) bool {
	for _, st := range orderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	recent, err := h.Orders.List(ctx, "", 1, 10)
	if err != nil {
		applog.Error(c, "admin.dashboard.fail", err, nil)
		return render(c.Status(fiber.StatusInternalServerError), "notfound", fiber.Map{"Message": "Could not load dashboard"})
	}
	counts := map[string]int{}
	for _, st := range orderStatuses {
		pg, err := h.Orders.List(ctx, st, 1, 1)
		if err != nil {
			return err
		}
		counts[st] = pg.Total
	}
	products, err := h.Catalog.Paginate(ctx, domain.ProductFilter{IncludeHidden: true}, 1, 1)
	if err != nil {
		return err
	}
	return render(c, "admin_dashboard", fiber.Map{
		"Recent": recent.Items, "Counts": counts, "Statuses": orderStatuses, "ProductCount": products.Total,
	})
}

// GET /admin/orders?status=&page=
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && !validStatus(status) {
		status = ""
	}
	pg, err := h.Orders.List(c.UserContext(), status, validate.Page(c.Query("page")), 25)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return render(c.Status(fiber.StatusInternalServerError), "notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "admin_orders", fiber.Map{"Orders": pg, "Status": status, "Statuses": orderStatuses})
}

func (h *AdminHandler) orderPage(c *fiber.Ctx, status int, id, errMsg string) error {
	d, err := h.Orders.Get(c.UserContext(), id)
	if err != nil {
		return pageError(c, err, "Order not found")
	}
	return render(c.Status(status), "admin_order", fiber.Map{
		"Detail": d, "Order": d.Order, "Next": domain.NextStatuses(d.Order.Status), "Err": errMsg,
	})
}

// GET /admin/orders/:id
func (h *AdminHandler) OrderPage(c *fiber.Ctx) error {
	return h.orderPage(c, fiber.StatusOK, c.Params("id"), "")
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var in services.StatusInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("missing id or status")
	}
	if _, err := h.Orders.UpdateStatus(c.UserContext(), id, in); err != nil {
		if fe, ok := formErrors(err); ok {
			return h.orderPage(c, fiber.StatusUnprocessableEntity, id, fe[0].Field+" "+fe[0].Message)
		}
		if errors.Is(err, services.ErrConflict) {
			return h.orderPage(c, fiber.StatusConflict, id, "That status change is not allowed.")
		}
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return pageError(c, err, "Order not found")
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": in.Status})
	return c.Redirect("/admin/orders/" + id)
}

// GET /admin/catalog
func (h *AdminHandler) CatalogPage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	cats, err := h.Catalog.ListCategories(ctx, false)
	if err != nil {
		return err
	}
	subs, err := h.Catalog.ListSubcategories(ctx, "")
	if err != nil {
		return err
	}
	types, err := h.Catalog.ListProductTypes(ctx, "")
	if err != nil {
		return err
	}
	typesBySub := map[string][]domain.ProductType{}
	for _, t := range types {
		typesBySub[t.SubcategoryID] = append(typesBySub[t.SubcategoryID], t)
	}
	subsByCat := map[string][]domain.Subcategory{}
	for _, sc := range subs {
		sc.ProductTypes = typesBySub[sc.ID]
		subsByCat[sc.CategoryID] = append(subsByCat[sc.CategoryID], sc)
	}
	for i := range cats {
		cats[i].Subcategories = subsByCat[cats[i].ID]
	}
	products, err := h.Catalog.Paginate(ctx, domain.ProductFilter{IncludeHidden: true, Sort: "name"},
		validate.Page(c.Query("page")), domain.MaxPageSize)
	if err != nil {
		return err
	}
	return render(c, "admin_catalog", fiber.Map{"Categories": cats, "Products": products, "Err": c.Query("err")})
}

// POST /admin/categories
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	var in services.CategoryInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form")
	}
	cat, err := h.Catalog.CreateCategory(c.UserContext(), in)
	if err != nil {
		if _, ok := formErrors(err); ok || errors.Is(err, services.ErrConflict) {
			return c.Redirect("/admin/catalog?err=Could+not+create+category")
		}
		return err
	}
	applog.Audit(c, "admin.category.create", map[string]any{"id": cat.ID, "slug": cat.Slug})
	return c.Redirect("/admin/catalog")
}

func formBool(c *fiber.Ctx, key string) bool {
	v := c.FormValue(key)
	return v == "true" || v == "on" || v == "1"
}

// POST /admin/categories/:id/active
func (h *AdminHandler) ToggleCategory(c *fiber.Ctx) error {
	id, active := c.Params("id"), formBool(c, "active")
	if _, err := h.Catalog.SetCategoryActive(c.UserContext(), id, active); err != nil {
		return pageError(c, err, "Category not found")
	}
	applog.Audit(c, "admin.category.active", map[string]any{"id": id, "active": active})
	return c.Redirect("/admin/catalog")
}

// POST /admin/products/:id/active
func (h *AdminHandler) ToggleProduct(c *fiber.Ctx) error {
	id, active := c.Params("id"), formBool(c, "active")
	if _, err := h.Catalog.SetProductActive(c.UserContext(), id, active); err != nil {
		return pageError(c, err, "Product not found")
	}
	applog.Audit(c, "admin.product.active", map[string]any{"id": id, "active": active})
	return c.Redirect("/admin/catalog")
}

// GET /admin/banners
func (h *AdminHandler) BannersPage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	banners, err := h.Banners.ListBanners(ctx)
	if err != nil {
		return err
	}
	promos, err := h.Banners.ListPromos(ctx, "")
	if err != nil {
		return err
	}
	return render(c, "admin_banners", fiber.Map{"Banners": banners, "Promos": promos, "Locations": domain.PromoLocations})
}

// POST /admin/banners/:id/active
func (h *AdminHandler) ToggleBanner(c *fiber.Ctx) error {
	id, active := c.Params("id"), formBool(c, "active")
	if _, err := h.Banners.SetBannerActive(c.UserContext(), id, active); err != nil {
		return pageError(c, err, "Banner not found")
	}
	applog.Audit(c, "admin.banner.active", map[string]any{"id": id, "active": active})
	return c.Redirect("/admin/banners")
}

// POST /admin/promotional-banners/:id/active
func (h *AdminHandler) TogglePromo(c *fiber.Ctx) error {
	id, active := c.Params("id"), formBool(c, "active")
	if _, err := h.Banners.SetPromoActive(c.UserContext(), id, active); err != nil {
		return pageError(c, err, "Banner not found")
	}
	applog.Audit(c, "admin.promo.active", map[string]any{"id": id, "active": active})
	return c.Redirect("/admin/banners")
}
