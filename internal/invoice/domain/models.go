// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	InvoiceStatusOpen  InvoiceStatus = "OPEN"
	InvoiceStatusPaid  InvoiceStatus = "PAID"
	InvoiceStatusVoid  InvoiceStatus = "VOID"
)

// Invoice represents a customer invoice.
type Invoice struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	CustomerID snowflake.ID      `gorm:"not null;index"`
	Status     InvoiceStatus     `gorm:"type:text;not null;default:'DRAFT'"`
	Currency   string            `gorm:"type:text;not null"`
	IssuedAt   *time.Time        `gorm:""`
	DueAt      *time.Time        `gorm:""`
	Metadata   datatypes.JSONMap `gorm:"not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"not null;index"`
	UpdatedAt  time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem represents a line on an invoice. Voided lines stay in the
// table for referential integrity; the void triple records who, when, and
// why. The triple is written exactly once and never cleared.
type InvoiceItem struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	InvoiceID       snowflake.ID      `gorm:"not null;index;uniqueIndex:idx_invoice_items_position"`
	Description     string            `gorm:"type:text;not null"`
	Quantity        int64             `gorm:"not null"`
	UnitAmountCents int64             `gorm:"not null"`
	Position        int               `gorm:"not null;uniqueIndex:idx_invoice_items_position"`
	VoidedAt        *time.Time        `gorm:"index"`
	VoidedByUserID  *snowflake.ID     `gorm:""`
	VoidReason      *string           `gorm:"type:text"`
	Metadata        datatypes.JSONMap `gorm:"not null;default:'{}'"`
	CreatedAt       time.Time         `gorm:"not null"`
	UpdatedAt       time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// Voided reports whether the line has been voided.
func (i InvoiceItem) Voided() bool { return i.VoidedAt != nil }

// Cursor is the keyset position for invoice listing.
type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// ListFilter narrows invoice listing.
type ListFilter struct {
	CustomerID *snowflake.ID
	Status     InvoiceStatus
	Cursor     *Cursor
	Limit      int
}
