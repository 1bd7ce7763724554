package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, asset *Asset) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Asset, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Asset, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Asset, error)
	Update(ctx context.Context, db *gorm.DB, asset *Asset) error
	MarkDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedAt time.Time, deletedBy *snowflake.ID) (int64, error)
}
