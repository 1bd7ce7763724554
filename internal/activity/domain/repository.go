package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository is the storage boundary for ledger entries. It is append-only
// by construction: there is no update or delete operation to call.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ActivityLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*ActivityLog, error)
	CountByEntity(ctx context.Context, db *gorm.DB, entityType, entityID string) (int64, error)
}
