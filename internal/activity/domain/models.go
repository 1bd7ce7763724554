// Package domain contains the append-only activity ledger model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Action tags the kind of state-changing event a ledger entry records.
// Stored as free-form text; writers draw from this closed vocabulary.
const (
	ActionPayment = "payment"
	ActionRefund  = "refund"
	ActionVoid    = "void"
	ActionCancel  = "cancel"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
)

// Entity types the ledger may reference. The pair (EntityType, EntityID) is
// a polymorphic reference with no database foreign key: the referenced row
// may be deleted after the fact and the entry must survive it.
const (
	EntityInvoice     = "Invoice"
	EntityInvoiceItem = "InvoiceItem"
	EntityCustomer    = "Customer"
	EntityAsset       = "Asset"
	EntityUser        = "User"
)

var knownEntityTypes = map[string]bool{
	EntityInvoice:     true,
	EntityInvoiceItem: true,
	EntityCustomer:    true,
	EntityAsset:       true,
	EntityUser:        true,
}

// IsKnownEntityType reports whether the ledger vocabulary includes entityType.
func IsKnownEntityType(entityType string) bool {
	return knownEntityTypes[entityType]
}

// ActivityLog is one immutable ledger entry. Rows are inserted once and
// never updated or deleted.
type ActivityLog struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorUserID *snowflake.ID     `gorm:"index" json:"actor_user_id"`
	Action      string            `gorm:"type:text;not null;index" json:"action"`
	EntityType  string            `gorm:"type:text;not null;index:idx_activity_logs_entity,priority:1" json:"entity_type"`
	EntityID    string            `gorm:"type:text;not null;index:idx_activity_logs_entity,priority:2" json:"entity_id"`
	Summary     string            `gorm:"type:text;not null" json:"summary"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt   time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (ActivityLog) TableName() string { return "activity_logs" }

// Cursor marks a position in the newest-first entry ordering.
type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// ListFilter narrows a ledger read.
type ListFilter struct {
	ActorUserID *snowflake.ID
	Action      string
	EntityType  string
	EntityID    string
	StartAt     *time.Time
	EndAt       *time.Time
	Cursor      *Cursor
	Limit       int
}
