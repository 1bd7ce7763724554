package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/pkg/db/pagination"
)

// Money pairs an integer minor-unit amount with an ISO 4217 code.
type Money struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type CreateAssetRequest struct {
	Name     string         `json:"name"`
	Quantity int64          `json:"quantity"`
	Cost     Money          `json:"cost"`
	Price    Money          `json:"price"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type UpdateAssetRequest struct {
	Name     *string `json:"name,omitempty"`
	Quantity *int64  `json:"quantity,omitempty"`
	Cost     *Money  `json:"cost,omitempty"`
	Price    *Money  `json:"price,omitempty"`
}

type ListAssetsRequest struct {
	pagination.Pagination
	Slug           string `form:"slug"`
	IncludeDeleted bool   `form:"include_deleted"`
}

type ListAssetsResponse struct {
	pagination.PageInfo
	Assets []Asset `json:"assets"`
}

type Service interface {
	Create(ctx context.Context, req CreateAssetRequest) (*Asset, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Asset, error)
	List(ctx context.Context, req ListAssetsRequest) (ListAssetsResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateAssetRequest) (*Asset, error)
	Delete(ctx context.Context, id snowflake.ID, actingUserID *snowflake.ID) error
}

var (
	ErrInvalidID           = errors.New("invalid_asset_id")
	ErrInvalidName         = errors.New("invalid_asset_name")
	ErrInvalidQuantity     = errors.New("invalid_asset_quantity")
	ErrInvalidAmount       = errors.New("invalid_asset_amount")
	ErrUnsupportedCurrency = errors.New("unsupported_currency")
	ErrDuplicateSlug       = errors.New("duplicate_asset_slug")
	ErrNotFound            = errors.New("asset_not_found")
	ErrAlreadyDeleted      = errors.New("asset_already_deleted")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)

func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
