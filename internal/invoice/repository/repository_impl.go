package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if invoice == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, customer_id, status, currency, issued_at, due_at, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.CustomerID,
		invoice.Status,
		invoice.Currency,
		invoice.IssuedAt,
		invoice.DueAt,
		invoice.Metadata,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) FindInvoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) ListInvoices(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})

	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		stmt = stmt.Where("status = ?", status)
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

	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.InvoiceItem) error {
	if item == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoice_items (
			id, invoice_id, description, quantity, unit_amount_cents, position,
			voided_at, voided_by_user_id, void_reason, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.InvoiceID,
		item.Description,
		item.Quantity,
		item.UnitAmountCents,
		item.Position,
		item.VoidedAt,
		item.VoidedByUserID,
		item.VoidReason,
		item.Metadata,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindItemByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InvoiceItem, error) {
	var item domain.InvoiceItem
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) NextPosition(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int, error) {
	var next int
	err := db.WithContext(ctx).
		Raw(`SELECT COALESCE(MAX(position), 0) + 1 FROM invoice_items WHERE invoice_id = ?`, invoiceID).
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// MarkItemVoided guards the write with voided_at IS NULL so the transition
// happens at most once regardless of interleaving.
func (r *repo) MarkItemVoided(ctx context.Context, db *gorm.DB, id snowflake.ID, voidedAt time.Time, voidedBy *snowflake.ID, reason string) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoice_items
		 SET voided_at = ?, voided_by_user_id = ?, void_reason = ?, updated_at = ?
		 WHERE id = ? AND voided_at IS NULL`,
		voidedAt,
		voidedBy,
		reason,
		voidedAt,
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, activeOnly bool) ([]*domain.InvoiceItem, error) {
	var items []*domain.InvoiceItem
	stmt := db.WithContext(ctx).Model(&domain.InvoiceItem{}).
		Where("invoice_id = ?", invoiceID)
	if activeOnly {
		stmt = stmt.Where("voided_at IS NULL")
	}
	if err := stmt.Order("position asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
