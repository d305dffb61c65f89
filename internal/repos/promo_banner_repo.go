package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type PromoBannerRepo struct{ db *sqlx.DB }

func NewPromoBannerRepo(db *sqlx.DB) *PromoBannerRepo { return &PromoBannerRepo{db: db} }

const promoCols = `id, title, image_url, link_url, location, sort_order, is_active, starts_at, ends_at, created_at, updated_at`

// List returns promotional banners, optionally for a single location.
func (r *PromoBannerRepo) List(ctx context.Context, location string) ([]domain.PromotionalBanner, error) {
	out := []domain.PromotionalBanner{}
	q := `SELECT ` + promoCols + ` FROM promotional_banners`
	args := []any{}
	if location != "" {
		q += ` WHERE location = ?`
		args = append(args, location)
	}
	err := r.db.SelectContext(ctx, &out, q+` ORDER BY location, sort_order, created_at DESC`, args...)
	return out, err
}

// ListLive returns active banners for location whose optional window contains at.
// at and the stored bounds are RFC3339 UTC strings, so text comparison orders them.
func (r *PromoBannerRepo) ListLive(ctx context.Context, location, at string) ([]domain.PromotionalBanner, error) {
	out := []domain.PromotionalBanner{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+promoCols+` FROM promotional_banners
		WHERE location = ? AND is_active = 1
		  AND (starts_at = '' OR starts_at <= ?)
		  AND (ends_at = '' OR ends_at > ?)
		ORDER BY sort_order, created_at DESC
	`, location, at, at)
	return out, err
}

func (r *PromoBannerRepo) Get(ctx context.Context, id string) (domain.PromotionalBanner, error) {
	var b domain.PromotionalBanner
	err := r.db.GetContext(ctx, &b, `SELECT `+promoCols+` FROM promotional_banners WHERE id = ?`, id)
	return b, err
}

func (r *PromoBannerRepo) Create(ctx context.Context, b *domain.PromotionalBanner) error {
	b.CreatedAt, b.UpdatedAt = now(), now()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO promotional_banners (id, title, image_url, link_url, location, sort_order, is_active, starts_at, ends_at, created_at, updated_at)
		VALUES (:id, :title, :image_url, :link_url, :location, :sort_order, :is_active, :starts_at, :ends_at, :created_at, :updated_at)
	`, b)
	return translate(err)
}

func (r *PromoBannerRepo) Update(ctx context.Context, b *domain.PromotionalBanner) error {
	b.UpdatedAt = now()
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE promotional_banners
		SET title = :title, image_url = :image_url, link_url = :link_url, location = :location,
		    sort_order = :sort_order, is_active = :is_active, starts_at = :starts_at, ends_at = :ends_at,
		    updated_at = :updated_at
		WHERE id = :id
	`, b)
	return translate(err)
}

func (r *PromoBannerRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE promotional_banners SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
	return err
}

func (r *PromoBannerRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM promotional_banners WHERE id = ?`, id)
	return err
}
