package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	activitydomain "github.com/smallbiznis/bizhub/internal/activity/domain"
	activitysvc "github.com/smallbiznis/bizhub/internal/activity/service"
	"github.com/smallbiznis/bizhub/internal/actorcontext"
	"github.com/smallbiznis/bizhub/internal/asset/domain"
	"github.com/smallbiznis/bizhub/internal/clock"
	"github.com/smallbiznis/bizhub/internal/config"
	"github.com/smallbiznis/bizhub/pkg/db"
	"github.com/smallbiznis/bizhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Settings     *config.SettingsHolder
	Repo         domain.Repository
	ActivityRepo activitydomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	settings     *config.SettingsHolder
	repo         domain.Repository
	activityRepo activitydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("asset.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		settings:     p.Settings,
		repo:         p.Repo,
		activityRepo: p.ActivityRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAssetRequest) (*domain.Asset, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	cost, err := s.normalizeMoney(req.Cost)
	if err != nil {
		return nil, err
	}
	price, err := s.normalizeMoney(req.Price)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	asset := &domain.Asset{
		ID:               s.genID.Generate(),
		Name:             name,
		Slug:             slug.Make(name),
		Quantity:         req.Quantity,
		CostAmountCents:  cost.AmountCents,
		CostCurrency:     cost.Currency,
		PriceAmountCents: price.AmountCents,
		PriceCurrency:    price.Currency,
		Metadata:         normalizeMetadata(req.Metadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, asset); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateSlug
			}
			return err
		}
		entry, err := activitysvc.BuildEntry(ctx, s.genID, now, activitydomain.RecordRequest{
			Action:     activitydomain.ActionCreate,
			EntityType: activitydomain.EntityAsset,
			EntityID:   asset.ID.String(),
			Summary:    "Created asset " + name,
			Metadata:   map[string]any{"slug": asset.Slug},
		})
		if err != nil {
			return err
		}
		return s.activityRepo.Insert(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Asset, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	asset, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, domain.ErrNotFound
	}
	return asset, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAssetsRequest) (domain.ListAssetsResponse, error) {
	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListAssetsResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListAssetsResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListAssetsResponse{}, domain.ErrInvalidPageToken
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

	assets, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Slug:           req.Slug,
		IncludeDeleted: req.IncludeDeleted,
		Cursor:         cursor,
		Limit:          pageSize,
	})
	if err != nil {
		return domain.ListAssetsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(assets, int32(pageSize), func(asset *domain.Asset) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        asset.ID.String(),
			CreatedAt: asset.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(assets) > pageSize {
		assets = assets[:pageSize]
	}

	resp := domain.ListAssetsResponse{Assets: dereference(assets)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateAssetRequest) (*domain.Asset, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}

	var updated *domain.Asset
	err := s.db.Transaction(func(tx *gorm.DB) error {
		asset, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if asset == nil || asset.Deleted() {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			asset.Name = name
			asset.Slug = slug.Make(name)
		}
		if req.Quantity != nil {
			if *req.Quantity < 1 {
				return domain.ErrInvalidQuantity
			}
			asset.Quantity = *req.Quantity
		}
		if req.Cost != nil {
			cost, err := s.normalizeMoney(*req.Cost)
			if err != nil {
				return err
			}
			asset.CostAmountCents = cost.AmountCents
			asset.CostCurrency = cost.Currency
		}
		if req.Price != nil {
			price, err := s.normalizeMoney(*req.Price)
			if err != nil {
				return err
			}
			asset.PriceAmountCents = price.AmountCents
			asset.PriceCurrency = price.Currency
		}

		now := s.clock.Now().UTC()
		asset.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, asset); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateSlug
			}
			return err
		}

		entry, err := activitysvc.BuildEntry(ctx, s.genID, now, activitydomain.RecordRequest{
			Action:     activitydomain.ActionUpdate,
			EntityType: activitydomain.EntityAsset,
			EntityID:   asset.ID.String(),
			Summary:    "Updated asset " + asset.Name,
		})
		if err != nil {
			return err
		}
		if err := s.activityRepo.Insert(ctx, tx, entry); err != nil {
			return err
		}
		updated = asset
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID, actingUserID *snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidID
	}
	if actingUserID == nil {
		if ctxActor, ok := actorcontext.ActorFromContext(ctx); ok {
			actingUserID = &ctxActor
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		asset, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if asset == nil {
			return domain.ErrNotFound
		}
		if asset.Deleted() {
			return domain.ErrAlreadyDeleted
		}

		now := s.clock.Now().UTC()
		affected, err := s.repo.MarkDeleted(ctx, tx, id, now, actingUserID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrAlreadyDeleted
		}

		entry, err := activitysvc.BuildEntry(ctx, s.genID, now, activitydomain.RecordRequest{
			ActorUserID: actingUserID,
			Action:      activitydomain.ActionDelete,
			EntityType:  activitydomain.EntityAsset,
			EntityID:    id.String(),
			Summary:     "Deleted asset " + asset.Name,
		})
		if err != nil {
			return err
		}
		return s.activityRepo.Insert(ctx, tx, entry)
	})
}

func (s *Service) normalizeMoney(m domain.Money) (domain.Money, error) {
	if m.AmountCents < 0 {
		return domain.Money{}, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(m.Currency))
	if currency == "" {
		currency = s.settings.Current().DefaultCurrency
	}
	if !s.settings.Current().AllowsCurrency(currency) {
		return domain.Money{}, domain.ErrUnsupportedCurrency
	}
	return domain.Money{AmountCents: m.AmountCents, Currency: currency}, nil
}

func normalizeMetadata(metadata map[string]any) datatypes.JSONMap {
	payload := datatypes.JSONMap{}
	for key, value := range metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	return payload
}

func dereference(assets []*domain.Asset) []domain.Asset {
	out := make([]domain.Asset, 0, len(assets))
	for _, asset := range assets {
		if asset == nil {
			continue
		}
		out = append(out, *asset)
	}
	return out
}
