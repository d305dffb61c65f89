package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/log"
	"synergyfoods/internal/services"
	"synergyfoods/internal/validate"
)

// StoreHandler serves the public catalog pages.
type StoreHandler struct {
	Catalog *services.CatalogService
	Banners *services.BannerService
}

var sorts = map[string]bool{"newest": true, "price_asc": true, "price_desc": true, "name": true}

func listingQuery(c *fiber.Ctx) (string, int) {
	sort := c.Query("sort")
	if !sorts[sort] {
		sort = "newest"
	}
	return sort, validate.Page(c.Query("page"))
}

func (h *StoreHandler) Home(c *fiber.Ctx) error {
	ctx := c.UserContext()
	tree, err := h.Catalog.Tree(ctx)
	if err != nil {
		return err
	}
	banners, err := h.Banners.ActiveBanners(ctx)
	if err != nil {
		return err
	}
	promos := fiber.Map{}
	now := time.Now()
	for _, loc := range []string{domain.PromoHomeTop, domain.PromoHomeMiddle, domain.PromoHomeBottom} {
		ps, err := h.Banners.LivePromos(ctx, loc, now)
		if err != nil {
			return err
		}
		promos[loc] = ps
	}
	featured, err := h.Catalog.Paginate(ctx, domain.ProductFilter{FeaturedOnly: true}, 1, 8)
	if err != nil {
		return err
	}
	return render(c, "home", fiber.Map{
		"Categories": tree, "Banners": banners, "Promos": promos, "Featured": featured.Items,
	})
}

// listing renders one level of the taxonomy with its paged products.
func (h *StoreHandler) listing(c *fiber.Ctx, data fiber.Map, f domain.ProductFilter, base string) error {
	sort, page := listingQuery(c)
	f.Sort = sort
	products, err := h.Catalog.Paginate(c.UserContext(), f, page, domain.DefaultPageSize)
	if err != nil {
		return err
	}
	sidebar, err := h.Banners.LivePromos(c.UserContext(), domain.PromoCategorySidebar, time.Now())
	if err != nil {
		return err
	}
	data["Products"] = products
	data["Sort"] = sort
	data["Base"] = base
	data["Sidebar"] = sidebar
	return render(c, "listing", data)
}

// GET /c/:cat
func (h *StoreHandler) Category(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("cat"))
	if !ok {
		return notFound(c, "Category not found")
	}
	cat, err := h.Catalog.CategoryBySlug(c.UserContext(), slug)
	if err != nil {
		return pageError(c, err, "Category not found")
	}
	return h.listing(c, fiber.Map{"Category": cat, "Title": cat.Name}, domain.ProductFilter{CategoryID: cat.ID}, "/c/"+cat.Slug)
}

// GET /c/:cat/:sub
func (h *StoreHandler) Subcategory(c *fiber.Ctx) error {
	catSlug, ok1 := validate.Slug(c.Params("cat"))
	subSlug, ok2 := validate.Slug(c.Params("sub"))
	if !ok1 || !ok2 {
		return notFound(c, "Category not found")
	}
	cat, sub, err := h.Catalog.SubcategoryBySlug(c.UserContext(), catSlug, subSlug)
	if err != nil {
		return pageError(c, err, "Category not found")
	}
	return h.listing(c, fiber.Map{"Category": cat, "Subcategory": sub, "Title": sub.Name},
		domain.ProductFilter{SubcategoryID: sub.ID}, "/c/"+cat.Slug+"/"+sub.Slug)
}

// GET /c/:cat/:sub/:type
func (h *StoreHandler) ProductType(c *fiber.Ctx) error {
	catSlug, ok1 := validate.Slug(c.Params("cat"))
	subSlug, ok2 := validate.Slug(c.Params("sub"))
	typeSlug, ok3 := validate.Slug(c.Params("type"))
	if !ok1 || !ok2 || !ok3 {
		return notFound(c, "Category not found")
	}
	cat, sub, pt, err := h.Catalog.ProductTypeBySlug(c.UserContext(), catSlug, subSlug, typeSlug)
	if err != nil {
		return pageError(c, err, "Category not found")
	}
	return h.listing(c, fiber.Map{"Category": cat, "Subcategory": sub, "ProductType": pt, "Title": pt.Name},
		domain.ProductFilter{ProductTypeID: pt.ID}, "/c/"+cat.Slug+"/"+sub.Slug+"/"+pt.Slug)
}

// GET /p/:slug
func (h *StoreHandler) Product(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	p, err := h.Catalog.ProductBySlug(c.UserContext(), slug)
	if err != nil {
		return pageError(c, err, "This item is no longer available")
	}
	cat, err := h.Catalog.GetCategory(c.UserContext(), p.CategoryID)
	if err != nil {
		return pageError(c, err, "This item is no longer available")
	}
	return render(c, "product", fiber.Map{"P": p, "Category": cat, "MaxQty": validate.MaxQty})
}

// GET /search?q=
func (h *StoreHandler) Search(c *fiber.Ctx) error {
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) == "" {
		// Initial page load: show empty search without errors
		return render(c, "search", fiber.Map{"Q": "", "Count": 0})
	}
	q, ok := validate.Q(rawQ)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "q", "value": rawQ})
		return render(c.Status(fiber.StatusBadRequest), "search", fiber.Map{
			"Q": "", "Count": 0, "Err": "Enter a valid keyword (letters and numbers only)",
		})
	}
	sort, page := listingQuery(c)
	products, err := h.Catalog.Paginate(c.UserContext(), domain.ProductFilter{Q: q, Sort: sort}, page, domain.DefaultPageSize)
	if err != nil {
		log.Error(c, "search.error", err, nil)
		return render(c.Status(fiber.StatusInternalServerError), "notfound", fiber.Map{"Message": "Could not load results. Please retry."})
	}
	return render(c, "search", fiber.Map{"Q": q, "Sort": sort, "Products": products, "Count": products.Total})
}
