package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"synergyfoods/internal/cache"
	"synergyfoods/internal/domain"
	"synergyfoods/internal/repos"
)

type BannerService struct {
	Banners *repos.BannerRepo
	Promos  *repos.PromoBannerRepo
	Cache   cache.Store
}

func NewBannerService(banners *repos.BannerRepo, promos *repos.PromoBannerRepo, c cache.Store) *BannerService {
	if c == nil {
		c = cache.Noop{}
	}
	return &BannerService{Banners: banners, Promos: promos, Cache: c}
}

type BannerInput struct {
	Title     string `json:"title" form:"title" validate:"required,max=120"`
	Subtitle  string `json:"subtitle" form:"subtitle" validate:"max=200"`
	ImageURL  string `json:"imageUrl" form:"imageUrl" validate:"required,max=300"`
	LinkURL   string `json:"linkUrl" form:"linkUrl" validate:"max=300"`
	SortOrder int    `json:"sortOrder" form:"sortOrder" validate:"gte=0"`
	IsActive  *bool  `json:"isActive" form:"isActive"`
}

// PromoInput window bounds are optional RFC3339 timestamps.
type PromoInput struct {
	Title     string `json:"title" form:"title" validate:"required,max=120"`
	ImageURL  string `json:"imageUrl" form:"imageUrl" validate:"required,max=300"`
	LinkURL   string `json:"linkUrl" form:"linkUrl" validate:"max=300"`
	Location  string `json:"location" form:"location" validate:"required,promo_location"`
	SortOrder int    `json:"sortOrder" form:"sortOrder" validate:"gte=0"`
	IsActive  *bool  `json:"isActive" form:"isActive"`
	StartsAt  string `json:"startsAt" form:"startsAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAt    string `json:"endsAt" form:"endsAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

const bannersKey = catalogPrefix + "banners"

// ActiveBanners returns the homepage carousel, cached.
func (s *BannerService) ActiveBanners(ctx context.Context) ([]domain.Banner, error) {
	var out []domain.Banner
	if cache.Load(ctx, s.Cache, bannersKey, &out) {
		return out, nil
	}
	out, err := s.Banners.List(ctx, true)
	if err != nil {
		return nil, err
	}
	remember(ctx, s.Cache, bannersKey, out)
	return out, nil
}

// LivePromos returns active promotional banners for a slot whose optional
// window contains now.
func (s *BannerService) LivePromos(ctx context.Context, location string, now time.Time) ([]domain.PromotionalBanner, error) {
	return s.Promos.ListLive(ctx, location, now.UTC().Format(time.RFC3339))
}

// ---- banners ----

func (s *BannerService) ListBanners(ctx context.Context) ([]domain.Banner, error) {
	return s.Banners.List(ctx, false)
}

func (s *BannerService) GetBanner(ctx context.Context, id string) (domain.Banner, error) {
	b, err := s.Banners.Get(ctx, id)
	return b, lookup(err, "banner")
}

func (s *BannerService) CreateBanner(ctx context.Context, in BannerInput) (domain.Banner, error) {
	if err := check(in); err != nil {
		return domain.Banner{}, err
	}
	b := domain.Banner{
		ID: uuid.NewString(), Title: in.Title, Subtitle: in.Subtitle, ImageURL: in.ImageURL,
		LinkURL: in.LinkURL, SortOrder: in.SortOrder, IsActive: boolOr(in.IsActive, true),
	}
	if err := s.Banners.Create(ctx, &b); err != nil {
		return b, store(err, "create banner")
	}
	invalidate(ctx, s.Cache)
	return b, nil
}

func (s *BannerService) UpdateBanner(ctx context.Context, id string, in BannerInput) (domain.Banner, error) {
	if err := check(in); err != nil {
		return domain.Banner{}, err
	}
	b, err := s.Banners.Get(ctx, id)
	if err != nil {
		return b, lookup(err, "banner")
	}
	b.Title, b.Subtitle, b.ImageURL, b.LinkURL, b.SortOrder = in.Title, in.Subtitle, in.ImageURL, in.LinkURL, in.SortOrder
	b.IsActive = boolOr(in.IsActive, b.IsActive)
	if err := s.Banners.Update(ctx, &b); err != nil {
		return b, store(err, "update banner")
	}
	invalidate(ctx, s.Cache)
	return b, nil
}

func (s *BannerService) SetBannerActive(ctx context.Context, id string, active bool) (domain.Banner, error) {
	if _, err := s.Banners.Get(ctx, id); err != nil {
		return domain.Banner{}, lookup(err, "banner")
	}
	if err := s.Banners.SetActive(ctx, id, active); err != nil {
		return domain.Banner{}, err
	}
	invalidate(ctx, s.Cache)
	return s.GetBanner(ctx, id)
}

func (s *BannerService) DeleteBanner(ctx context.Context, id string) error {
	if _, err := s.Banners.Get(ctx, id); err != nil {
		return lookup(err, "banner")
	}
	if err := s.Banners.Delete(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, s.Cache)
	return nil
}

// ---- promotional banners ----

func (s *BannerService) ListPromos(ctx context.Context, location string) ([]domain.PromotionalBanner, error) {
	return s.Promos.List(ctx, location)
}

func (s *BannerService) GetPromo(ctx context.Context, id string) (domain.PromotionalBanner, error) {
	b, err := s.Promos.Get(ctx, id)
	return b, lookup(err, "promotional banner")
}

// window normalises the optional bounds to UTC RFC3339 and checks their order.
func window(in PromoInput) (string, string, error) {
	var starts, ends string
	var st, et time.Time
	if in.StartsAt != "" {
		st, _ = time.Parse(time.RFC3339, in.StartsAt)
		starts = st.UTC().Format(time.RFC3339)
	}
	if in.EndsAt != "" {
		et, _ = time.Parse(time.RFC3339, in.EndsAt)
		ends = et.UTC().Format(time.RFC3339)
	}
	if starts != "" && ends != "" && !et.After(st) {
		return "", "", invalid("endsAt", "must be after startsAt")
	}
	return starts, ends, nil
}

func (s *BannerService) CreatePromo(ctx context.Context, in PromoInput) (domain.PromotionalBanner, error) {
	if err := check(in); err != nil {
		return domain.PromotionalBanner{}, err
	}
	starts, ends, err := window(in)
	if err != nil {
		return domain.PromotionalBanner{}, err
	}
	b := domain.PromotionalBanner{
		ID: uuid.NewString(), Title: in.Title, ImageURL: in.ImageURL, LinkURL: in.LinkURL, Location: in.Location,
		SortOrder: in.SortOrder, IsActive: boolOr(in.IsActive, true), StartsAt: starts, EndsAt: ends,
	}
	if err := s.Promos.Create(ctx, &b); err != nil {
		return b, store(err, "create promotional banner")
	}
	invalidate(ctx, s.Cache)
	return b, nil
}

func (s *BannerService) UpdatePromo(ctx context.Context, id string, in PromoInput) (domain.PromotionalBanner, error) {
	if err := check(in); err != nil {
		return domain.PromotionalBanner{}, err
	}
	b, err := s.Promos.Get(ctx, id)
	if err != nil {
		return b, lookup(err, "promotional banner")
	}
	starts, ends, err := window(in)
	if err != nil {
		return b, err
	}
	b.Title, b.ImageURL, b.LinkURL, b.Location, b.SortOrder = in.Title, in.ImageURL, in.LinkURL, in.Location, in.SortOrder
	b.StartsAt, b.EndsAt = starts, ends
	b.IsActive = boolOr(in.IsActive, b.IsActive)
	if err := s.Promos.Update(ctx, &b); err != nil {
		return b, store(err, "update promotional banner")
	}
	invalidate(ctx, s.Cache)
	return b, nil
}

func (s *BannerService) SetPromoActive(ctx context.Context, id string, active bool) (domain.PromotionalBanner, error) {
	if _, err := s.Promos.Get(ctx, id); err != nil {
		return domain.PromotionalBanner{}, lookup(err, "promotional banner")
	}
	if err := s.Promos.SetActive(ctx, id, active); err != nil {
		return domain.PromotionalBanner{}, err
	}
	invalidate(ctx, s.Cache)
	return s.GetPromo(ctx, id)
}

func (s *BannerService) DeletePromo(ctx context.Context, id string) error {
	if _, err := s.Promos.Get(ctx, id); err != nil {
		return lookup(err, "promotional banner")
	}
	if err := s.Promos.Delete(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, s.Cache)
	return nil
}
