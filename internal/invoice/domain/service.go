package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/pkg/db/pagination"
)

// CreateInvoiceRequest describes a new invoice.
type CreateInvoiceRequest struct {
	CustomerID string         `json:"customer_id"`
	Currency   string         `json:"currency"`
	DueAt      *time.Time     `json:"due_at,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AddItemRequest describes a new invoice line.
type AddItemRequest struct {
	Description     string `json:"description"`
	Quantity        int64  `json:"quantity"`
	UnitAmountCents int64  `json:"unit_amount_cents"`
}

// VoidItemRequest carries the void justification.
type VoidItemRequest struct {
	Reason string `json:"reason"`
}

type ListInvoicesRequest struct {
	pagination.Pagination
	CustomerID string `form:"customer_id"`
	Status     string `form:"status"`
}

type ListInvoicesResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Service is the invoicing boundary. VoidItem is the only state transition
// a line supports after creation; there is no un-void.
type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) (ListInvoicesResponse, error)

	AddItem(ctx context.Context, invoiceID snowflake.ID, req AddItemRequest) (*InvoiceItem, error)
	VoidItem(ctx context.Context, itemID snowflake.ID, actingUserID *snowflake.ID, reason string) (*InvoiceItem, error)
	ListActiveItems(ctx context.Context, invoiceID snowflake.ID) ([]InvoiceItem, error)
	ListItems(ctx context.Context, invoiceID snowflake.ID) ([]InvoiceItem, error)
}

var (
	ErrInvalidID           = errors.New("invalid_invoice_id")
	ErrInvalidCustomer     = errors.New("invalid_customer_id")
	ErrUnsupportedCurrency = errors.New("unsupported_currency")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrNotFound            = errors.New("invoice_not_found")

	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidAmount      = errors.New("invalid_unit_amount")
	ErrInvalidReason      = errors.New("invalid_void_reason")
	ErrItemNotFound       = errors.New("invoice_item_not_found")
	ErrItemAlreadyVoided  = errors.New("invoice_item_already_voided")

	ErrInvalidPageToken = errors.New("invalid_page_token")
)

// ParseID parses a snowflake identifier from its string form.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
