package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Customer, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error

	// MarkDeleted soft deletes the row only if it is still live, reporting
	// the number of rows changed.
	MarkDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedAt time.Time, deletedBy *snowflake.ID) (int64, error)
}
