package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"synergyfoods/internal/domain"
	applog "synergyfoods/internal/log"
	"synergyfoods/internal/services"
	"synergyfoods/internal/validate"
)

// DashboardHandler is the admin JSON API under /api. Every route is mounted
// behind RequireAdminToken.
type DashboardHandler struct {
	Catalog *services.CatalogService
	Banners *services.BannerService
	Orders  *services.OrderService
}

// resource is one CRUD collection: list, get, create, full update, active
// toggle and delete. In is the request body type.
type resource[T any, In any] struct {
	name   string // audit name, e.g. "category"
	list   func(c *fiber.Ctx) (any, error)
	get    func(ctx context.Context, id string) (T, error)
	create func(ctx context.Context, in In) (T, error)
	update func(ctx context.Context, id string, in In) (T, error)
	active func(ctx context.Context, id string, active bool) (T, error)
	remove func(ctx context.Context, id string) error
}

type activeRequest struct {
	IsActive *bool `json:"isActive"`
}

func pathID(c *fiber.Ctx) (string, bool) {
	return validate.ID(c.Params("id"))
}

func (r resource[T, In]) mount(g fiber.Router, path string) {
	g.Get(path, func(c *fiber.Ctx) error {
		items, err := r.list(c)
		if err != nil {
			return apiError(c, "admin."+r.name+".list", err)
		}
		return reply(c, fiber.StatusOK, "ok", items)
	})
	g.Get(path+"/:id", func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return reply(c, fiber.StatusNotFound, "not found", nil)
		}
		v, err := r.get(c.UserContext(), id)
		if err != nil {
			return apiError(c, "admin."+r.name+".get", err)
		}
		return reply(c, fiber.StatusOK, "ok", v)
	})
	g.Post(path, func(c *fiber.Ctx) error {
		var in In
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		v, err := r.create(c.UserContext(), in)
		if err != nil {
			return apiError(c, "admin."+r.name+".create", err)
		}
		applog.Audit(c, "admin."+r.name+".create", map[string]any{"entity": v})
		return reply(c, fiber.StatusCreated, r.name+" created", v)
	})
	g.Put(path+"/:id", func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return reply(c, fiber.StatusNotFound, "not found", nil)
		}
		var in In
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		v, err := r.update(c.UserContext(), id, in)
		if err != nil {
			return apiError(c, "admin."+r.name+".update", err)
		}
		applog.Audit(c, "admin."+r.name+".update", map[string]any{"id": id})
		return reply(c, fiber.StatusOK, r.name+" updated", v)
	})
	g.Patch(path+"/:id/active", func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return reply(c, fiber.StatusNotFound, "not found", nil)
		}
		var in activeRequest
		if err := c.BodyParser(&in); err != nil || in.IsActive == nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(envelope{
				Message: "validation failed",
				Errors:  []validate.FieldError{{Field: "isActive", Message: "is required"}},
			})
		}
		v, err := r.active(c.UserContext(), id, *in.IsActive)
		if err != nil {
			return apiError(c, "admin."+r.name+".active", err)
		}
		applog.Audit(c, "admin."+r.name+".active", map[string]any{"id": id, "active": *in.IsActive})
		return reply(c, fiber.StatusOK, r.name+" updated", v)
	})
	g.Delete(path+"/:id", func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return reply(c, fiber.StatusNotFound, "not found", nil)
		}
		if err := r.remove(c.UserContext(), id); err != nil {
			return apiError(c, "admin."+r.name+".delete", err)
		}
		applog.Audit(c, "admin."+r.name+".delete", map[string]any{"id": id})
		return reply(c, fiber.StatusOK, r.name+" deleted", nil)
	})
}

// Mount registers the dashboard collections and order management on g.
func (h *DashboardHandler) Mount(g fiber.Router) {
	cat := h.Catalog
	resource[domain.Category, services.CategoryInput]{
		name: "category",
		list: func(c *fiber.Ctx) (any, error) {
			return cat.ListCategories(c.UserContext(), c.QueryBool("activeOnly"))
		},
		get: cat.GetCategory, create: cat.CreateCategory, update: cat.UpdateCategory,
		active: cat.SetCategoryActive, remove: cat.DeleteCategory,
	}.mount(g, "/categories")

	resource[domain.Subcategory, services.SubcategoryInput]{
		name: "subcategory",
		list: func(c *fiber.Ctx) (any, error) {
			return cat.ListSubcategories(c.UserContext(), c.Query("categoryId"))
		},
		get: cat.GetSubcategory, create: cat.CreateSubcategory, update: cat.UpdateSubcategory,
		active: cat.SetSubcategoryActive, remove: cat.DeleteSubcategory,
	}.mount(g, "/subcategories")

	resource[domain.ProductType, services.ProductTypeInput]{
		name: "product_type",
		list: func(c *fiber.Ctx) (any, error) {
			return cat.ListProductTypes(c.UserContext(), c.Query("subcategoryId"))
		},
		get: cat.GetProductType, create: cat.CreateProductType, update: cat.UpdateProductType,
		active: cat.SetProductTypeActive, remove: cat.DeleteProductType,
	}.mount(g, "/product-types")

	resource[domain.Product, services.ProductInput]{
		name: "product",
		list: h.listProducts,
		get:  cat.GetProduct, create: cat.CreateProduct, update: cat.UpdateProduct,
		active: cat.SetProductActive, remove: cat.DeleteProduct,
	}.mount(g, "/products")

	b := h.Banners
	resource[domain.Banner, services.BannerInput]{
		name: "banner",
		list: func(c *fiber.Ctx) (any, error) { return b.ListBanners(c.UserContext()) },
		get:  b.GetBanner, create: b.CreateBanner, update: b.UpdateBanner,
		active: b.SetBannerActive, remove: b.DeleteBanner,
	}.mount(g, "/banners")

	resource[domain.PromotionalBanner, services.PromoInput]{
		name: "promotional_banner",
		list: func(c *fiber.Ctx) (any, error) { return b.ListPromos(c.UserContext(), c.Query("location")) },
		get:  b.GetPromo, create: b.CreatePromo, update: b.UpdatePromo,
		active: b.SetPromoActive, remove: b.DeletePromo,
	}.mount(g, "/promotional-banners")

	g.Get("/orders", h.ListOrders)
	g.Get("/orders/:id", h.GetOrder)
	g.Patch("/orders/:id/status", h.UpdateOrderStatus)
}

func (h *DashboardHandler) listProducts(c *fiber.Ctx) (any, error) {
	f := domain.ProductFilter{
		CategoryID:    c.Query("categoryId"),
		SubcategoryID: c.Query("subcategoryId"),
		ProductTypeID: c.Query("productTypeId"),
		FeaturedOnly:  c.QueryBool("featured"),
		IncludeHidden: true,
		Sort:          c.Query("sort"),
	}
	if q := c.Query("q"); q != "" {
		var ok bool
		if f.Q, ok = validate.Q(q); !ok {
			return nil, &services.ValidationError{Fields: []validate.FieldError{{Field: "q", Message: "is invalid"}}}
		}
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	return h.Catalog.Paginate(c.UserContext(), f, validate.Page(c.Query("page")), pageSize)
}

// GET /api/orders?status=&page=&pageSize=
func (h *DashboardHandler) ListOrders(c *fiber.Ctx) error {
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	pg, err := h.Orders.List(c.UserContext(), c.Query("status"), validate.Page(c.Query("page")), pageSize)
	if err != nil {
		return apiError(c, "admin.orders.list", err)
	}
	return reply(c, fiber.StatusOK, "ok", pg)
}

func (h *DashboardHandler) GetOrder(c *fiber.Ctx) error {
	d, err := h.Orders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "admin.orders.get", err)
	}
	return reply(c, fiber.StatusOK, "ok", d)
}

// PATCH /api/orders/:id/status
func (h *DashboardHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var in services.StatusInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	d, err := h.Orders.UpdateStatus(c.UserContext(), id, in)
	if err != nil {
		return apiError(c, "admin.orders.update", err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": in.Status})
	return reply(c, fiber.StatusOK, "status updated", d)
}
