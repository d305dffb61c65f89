package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"synergyfoods/internal/domain"
)

type BannerRepo struct{ db *sqlx.DB }

func NewBannerRepo(db *sqlx.DB) *BannerRepo { return &BannerRepo{db: db} }

const bannerCols = `id, title, subtitle, image_url, link_url, sort_order, is_active, created_at, updated_at`

func (r *BannerRepo) List(ctx context.Context, activeOnly bool) ([]domain.Banner, error) {
	out := []domain.Banner{}
	q := `SELECT ` + bannerCols + ` FROM banners`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	err := r.db.SelectContext(ctx, &out, q+` ORDER BY sort_order, created_at DESC`)
	return out, err
}

func (r *BannerRepo) Get(ctx context.Context, id string) (domain.Banner, error) {
	var b domain.Banner
	err := r.db.GetContext(ctx, &b, `SELECT `+bannerCols+` FROM banners WHERE id = ?`, id)
	return b, err
}

func (r *BannerRepo) Create(ctx context.Context, b *domain.Banner) error {
	b.CreatedAt, b.UpdatedAt = now(), now()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO banners (id, title, subtitle, image_url, link_url, sort_order, is_active, created_at, updated_at)
		VALUES (:id, :title, :subtitle, :image_url, :link_url, :sort_order, :is_active, :created_at, :updated_at)
	`, b)
	return translate(err)
}

func (r *BannerRepo) Update(ctx context.Context, b *domain.Banner) error {
	b.UpdatedAt = now()
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE banners
		SET title = :title, subtitle = :subtitle, image_url = :image_url, link_url = :link_url,
		    sort_order = :sort_order, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id
	`, b)
	return translate(err)
}

func (r *BannerRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE banners SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
	return err
}

func (r *BannerRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM banners WHERE id = ?`, id)
	return err
}
