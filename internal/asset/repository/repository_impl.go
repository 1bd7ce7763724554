package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/internal/asset/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, asset *domain.Asset) error {
	if asset == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO assets (
			id, name, slug, quantity,
			cost_amount_cents, cost_currency, price_amount_cents, price_currency,
			metadata, deleted_at, deleted_by_user_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID,
		asset.Name,
		asset.Slug,
		asset.Quantity,
		asset.CostAmountCents,
		asset.CostCurrency,
		asset.PriceAmountCents,
		asset.PriceCurrency,
		asset.Metadata,
		asset.DeletedAt,
		asset.DeletedByUserID,
		asset.CreatedAt,
		asset.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Asset, error) {
	var asset domain.Asset
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&asset).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Asset, error) {
	var asset domain.Asset
	err := db.WithContext(ctx).
		Where("slug = ?", strings.TrimSpace(slug)).
		First(&asset).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Asset, error) {
	var assets []*domain.Asset
	stmt := db.WithContext(ctx).Model(&domain.Asset{})

	if slug := strings.TrimSpace(filter.Slug); slug != "" {
		stmt = stmt.Where("slug = ?", slug)
	}
	if !filter.IncludeDeleted {
		stmt = stmt.Where("deleted_at IS NULL")
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, asset *domain.Asset) error {
	if asset == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE assets SET
			name = ?, slug = ?, quantity = ?,
			cost_amount_cents = ?, cost_currency = ?, price_amount_cents = ?, price_currency = ?,
			updated_at = ?
		 WHERE id = ?`,
		asset.Name,
		asset.Slug,
		asset.Quantity,
		asset.CostAmountCents,
		asset.CostCurrency,
		asset.PriceAmountCents,
		asset.PriceCurrency,
		asset.UpdatedAt,
		asset.ID,
	).Error
}

func (r *repo) MarkDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedAt time.Time, deletedBy *snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE assets
		 SET deleted_at = ?, deleted_by_user_id = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		deletedAt,
		deletedBy,
		deletedAt,
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
