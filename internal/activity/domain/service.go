package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/pkg/db/pagination"
)

// RecordRequest describes one action to append to the ledger.
type RecordRequest struct {
	ActorUserID *snowflake.ID
	Action      string
	EntityType  string
	EntityID    string
	Summary     string
	Metadata    map[string]any
}

type ListRequest struct {
	pagination.Pagination
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Entries []ActivityLog `json:"entries"`
}

// Service is the ledger boundary other subsystems call. Only appends and
// reads are exposed.
type Service interface {
	Record(ctx context.Context, req RecordRequest) (snowflake.ID, error)
	QueryByEntity(ctx context.Context, entityType, entityID string) ([]ActivityLog, error)
	QueryByActor(ctx context.Context, actorUserID snowflake.ID) ([]ActivityLog, error)
	QueryByAction(ctx context.Context, action string, startAt, endAt *time.Time) ([]ActivityLog, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidAction     = errors.New("invalid_action")
	ErrInvalidEntityType = errors.New("invalid_entity_type")
	ErrUnknownEntityType = errors.New("unknown_entity_type")
	ErrInvalidEntityID   = errors.New("invalid_entity_id")
	ErrInvalidSummary    = errors.New("invalid_summary")
	ErrInvalidActor      = errors.New("invalid_actor")
	ErrInvalidTimeRange  = errors.New("invalid_time_range")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
)
