package domain

type Banner struct {
	ID        string `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	Subtitle  string `db:"subtitle" json:"subtitle"`
	ImageURL  string `db:"image_url" json:"imageUrl"`
	LinkURL   string `db:"link_url" json:"linkUrl"`
	SortOrder int    `db:"sort_order" json:"sortOrder"`
	IsActive  bool   `db:"is_active" json:"isActive"`
	CreatedAt string `db:"created_at" json:"createdAt"`
	UpdatedAt string `db:"updated_at" json:"updatedAt"`
}

// Promotional banner slots on the storefront.
const (
	PromoHomeTop         = "HOME_TOP"
	PromoHomeMiddle      = "HOME_MIDDLE"
	PromoHomeBottom      = "HOME_BOTTOM"
	PromoCategorySidebar = "CATEGORY_SIDEBAR"
)

var PromoLocations = []string{PromoHomeTop, PromoHomeMiddle, PromoHomeBottom, PromoCategorySidebar}

type PromotionalBanner struct {
	ID        string `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	ImageURL  string `db:"image_url" json:"imageUrl"`
	LinkURL   string `db:"link_url" json:"linkUrl"`
	Location  string `db:"location" json:"location"`
	SortOrder int    `db:"sort_order" json:"sortOrder"`
	IsActive  bool   `db:"is_active" json:"isActive"`
	StartsAt  string `db:"starts_at" json:"startsAt,omitempty"`
	EndsAt    string `db:"ends_at" json:"endsAt,omitempty"`
	CreatedAt string `db:"created_at" json:"createdAt"`
	UpdatedAt string `db:"updated_at" json:"updatedAt"`
}
