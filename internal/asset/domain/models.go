// Package domain contains persistence models for sellable assets.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Asset is a sellable good or service with independent cost and price
// money pairs. The two currencies may differ; any conversion between them
// happens in reporting, not here.
type Asset struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name             string            `gorm:"not null" json:"name"`
	Slug             string            `gorm:"not null;uniqueIndex" json:"slug"`
	Quantity         int64             `gorm:"not null" json:"quantity"`
	CostAmountCents  int64             `gorm:"not null" json:"cost_amount_cents"`
	CostCurrency     string            `gorm:"type:text;not null" json:"cost_currency"`
	PriceAmountCents int64             `gorm:"not null" json:"price_amount_cents"`
	PriceCurrency    string            `gorm:"type:text;not null" json:"price_currency"`
	Metadata         datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	DeletedAt        *time.Time        `gorm:"index" json:"deleted_at,omitempty"`
	DeletedByUserID  *snowflake.ID     `gorm:"" json:"deleted_by_user_id,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updated_at"`
}

func (Asset) TableName() string { return "assets" }

// Deleted reports whether the asset has been soft deleted.
func (a Asset) Deleted() bool { return a.DeletedAt != nil }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Slug           string
	IncludeDeleted bool
	Cursor         *Cursor
	Limit          int
}
