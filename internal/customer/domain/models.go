package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Customer struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name            string            `gorm:"not null" json:"name"`
	Email           string            `gorm:"not null" json:"email"`
	Currency        string            `gorm:"column:currency" json:"currency,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	DeletedAt       *time.Time        `gorm:"index" json:"deleted_at,omitempty"`
	DeletedByUserID *snowflake.ID     `gorm:"" json:"deleted_by_user_id,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// Deleted reports whether the customer has been soft deleted.
func (c Customer) Deleted() bool { return c.DeletedAt != nil }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Email          string
	IncludeDeleted bool
	Cursor         *Cursor
	Limit          int
}
