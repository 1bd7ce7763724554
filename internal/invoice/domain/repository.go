package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the storage boundary for invoices and their lines. Methods
// take the db handle so callers can run them inside their own transaction.
type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindInvoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)

	InsertItem(ctx context.Context, db *gorm.DB, item *InvoiceItem) error
	FindItemByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InvoiceItem, error)
	NextPosition(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int, error)

	// MarkItemVoided sets the void triple on the row only if voided_at is
	// still null, reporting the number of rows changed. A zero count under
	// a concurrent void means the other writer won.
	MarkItemVoided(ctx context.Context, db *gorm.DB, id snowflake.ID, voidedAt time.Time, voidedBy *snowflake.ID, reason string) (int64, error)

	ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, activeOnly bool) ([]*InvoiceItem, error)
}
