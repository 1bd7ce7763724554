package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Currency string         `json:"currency,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type UpdateCustomerRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Currency *string `json:"currency,omitempty"`
}

type ListCustomersRequest struct {
	pagination.Pagination
	Email          string `form:"email"`
	IncludeDeleted bool   `form:"include_deleted"`
}

type ListCustomersResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) (ListCustomersResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateCustomerRequest) (*Customer, error)
	Delete(ctx context.Context, id snowflake.ID, actingUserID *snowflake.ID) error
}

var (
	ErrInvalidID           = errors.New("invalid_customer_id")
	ErrInvalidName         = errors.New("invalid_customer_name")
	ErrInvalidEmail        = errors.New("invalid_customer_email")
	ErrUnsupportedCurrency = errors.New("unsupported_currency")
	ErrNotFound            = errors.New("customer_not_found")
	ErrAlreadyDeleted      = errors.New("customer_already_deleted")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)

func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
