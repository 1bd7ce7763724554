package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/internal/activity/domain"
	"github.com/smallbiznis/bizhub/internal/actorcontext"
	"github.com/smallbiznis/bizhub/internal/clock"
	obsmetrics "github.com/smallbiznis/bizhub/internal/observability/metrics"
	"github.com/smallbiznis/bizhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultQueryLimit = 100
	defaultPageSize   = 50
	maxPageSize       = 250
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("activity.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

// Record appends exactly one entry. There is no corresponding update or
// delete anywhere in the package.
func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (snowflake.ID, error) {
	entry, err := BuildEntry(ctx, s.genID, s.clock.Now(), req)
	if err != nil {
		return 0, err
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Warn("failed to append activity entry", zap.String("action", entry.Action), zap.Error(err))
		return 0, err
	}
	s.obsMetrics.RecordActivityEntry(entry.Action)
	return entry.ID, nil
}

// BuildEntry validates a record request and shapes the row to insert. It is
// shared with writers that append inside their own transaction.
func BuildEntry(ctx context.Context, genID *snowflake.Node, now time.Time, req domain.RecordRequest) (*domain.ActivityLog, error) {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, domain.ErrInvalidAction
	}

	entityType := strings.TrimSpace(req.EntityType)
	if entityType == "" {
		return nil, domain.ErrInvalidEntityType
	}
	if !domain.IsKnownEntityType(entityType) {
		return nil, domain.ErrUnknownEntityType
	}

	entityID := strings.TrimSpace(req.EntityID)
	if entityID == "" {
		return nil, domain.ErrInvalidEntityID
	}

	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		return nil, domain.ErrInvalidSummary
	}

	actor := req.ActorUserID
	if actor == nil {
		if ctxActor, ok := actorcontext.ActorFromContext(ctx); ok {
			actor = &ctxActor
		}
	}
	if actor != nil && *actor == 0 {
		return nil, domain.ErrInvalidActor
	}

	payload := map[string]any{}
	for key, value := range req.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := actorcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	if ip := actorcontext.IPAddressFromContext(ctx); ip != "" {
		payload["ip_address"] = ip
	}

	return &domain.ActivityLog{
		ID:          genID.Generate(),
		ActorUserID: actor,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Summary:     summary,
		Metadata:    datatypes.JSONMap(payload),
		CreatedAt:   now.UTC(),
	}, nil
}

func (s *Service) QueryByEntity(ctx context.Context, entityType, entityID string) ([]domain.ActivityLog, error) {
	entityType = strings.TrimSpace(entityType)
	if entityType == "" {
		return nil, domain.ErrInvalidEntityType
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, domain.ErrInvalidEntityID
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		EntityType: entityType,
		EntityID:   entityID,
		Limit:      defaultQueryLimit,
	})
	if err != nil {
		return nil, err
	}
	return dereference(capped(items)), nil
}

func (s *Service) QueryByActor(ctx context.Context, actorUserID snowflake.ID) ([]domain.ActivityLog, error) {
	if actorUserID == 0 {
		return nil, domain.ErrInvalidActor
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		ActorUserID: &actorUserID,
		Limit:       defaultQueryLimit,
	})
	if err != nil {
		return nil, err
	}
	return dereference(capped(items)), nil
}

func (s *Service) QueryByAction(ctx context.Context, action string, startAt, endAt *time.Time) ([]domain.ActivityLog, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, domain.ErrInvalidAction
	}
	if startAt != nil && endAt != nil && startAt.After(*endAt) {
		return nil, domain.ErrInvalidTimeRange
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Action:  action,
		StartAt: startAt,
		EndAt:   endAt,
		Limit:   defaultQueryLimit,
	})
	if err != nil {
		return nil, err
	}
	return dereference(capped(items)), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return domain.ListResponse{}, domain.ErrInvalidTimeRange
	}

	var actorID *snowflake.ID
	if raw := strings.TrimSpace(req.ActorID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed == 0 {
			return domain.ListResponse{}, domain.ErrInvalidActor
		}
		actorID = &parsed
	}

	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Action:      req.Action,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		ActorUserID: actorID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Cursor:      cursor,
		Limit:       pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.ActivityLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	resp := domain.ListResponse{Entries: dereference(items)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// capped drops the extra row the repository fetches to detect further pages.
// The query methods are not paginated, so they return at most the limit.
func capped(items []*domain.ActivityLog) []*domain.ActivityLog {
	if len(items) > defaultQueryLimit {
		items = items[:defaultQueryLimit]
	}
	return items
}

func dereference(items []*domain.ActivityLog) []domain.ActivityLog {
	entries := make([]domain.ActivityLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries
}
