package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/bizhub/internal/activity/domain"
	activitysvc "github.com/smallbiznis/bizhub/internal/activity/service"
	"github.com/smallbiznis/bizhub/internal/actorcontext"
	"github.com/smallbiznis/bizhub/internal/clock"
	"github.com/smallbiznis/bizhub/internal/config"
	"github.com/smallbiznis/bizhub/internal/customer/domain"
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
		log:          p.Log.Named("customer.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		settings:     p.Settings,
		repo:         p.Repo,
		activityRepo: p.ActivityRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency != "" && !s.settings.Current().AllowsCurrency(currency) {
		return nil, domain.ErrUnsupportedCurrency
	}

	now := s.clock.Now().UTC()
	customer := &domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Currency:  currency,
		Metadata:  normalizeMetadata(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, customer); err != nil {
			return err
		}
		entry, err := activitysvc.BuildEntry(ctx, s.genID, now, activitydomain.RecordRequest{
			Action:     activitydomain.ActionCreate,
			EntityType: activitydomain.EntityCustomer,
			EntityID:   customer.ID.String(),
			Summary:    "Created customer " + name,
		})
		if err != nil {
			return err
		}
		return s.activityRepo.Insert(ctx, tx, entry)
	})
	if err != nil {
		s.log.Warn("failed to create customer", zap.Error(err))
		return nil, err
	}
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Customer, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomersRequest) (domain.ListCustomersResponse, error) {
	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListCustomersResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListCustomersResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListCustomersResponse{}, domain.ErrInvalidPageToken
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

	customers, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Email:          req.Email,
		IncludeDeleted: req.IncludeDeleted,
		Cursor:         cursor,
		Limit:          pageSize,
	})
	if err != nil {
		return domain.ListCustomersResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(customers, int32(pageSize), func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID.String(),
			CreatedAt: customer.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(customers) > pageSize {
		customers = customers[:pageSize]
	}

	resp := domain.ListCustomersResponse{Customers: dereference(customers)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateCustomerRequest) (*domain.Customer, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}

	var updated *domain.Customer
	err := s.db.Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil || customer.Deleted() {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			customer.Name = name
		}
		if req.Email != nil {
			email, err := normalizeEmail(*req.Email)
			if err != nil {
				return err
			}
			customer.Email = email
		}
		if req.Currency != nil {
			currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
			if currency != "" && !s.settings.Current().AllowsCurrency(currency) {
				return domain.ErrUnsupportedCurrency
			}
			customer.Currency = currency
		}

		now := s.clock.Now().UTC()
		customer.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, customer); err != nil {
			return err
		}

		entry, err := activitysvc.BuildEntry(ctx, s.genID, now, activitydomain.RecordRequest{
			Action:     activitydomain.ActionUpdate,
			EntityType: activitydomain.EntityCustomer,
			EntityID:   customer.ID.String(),
			Summary:    "Updated customer " + customer.Name,
		})
		if err != nil {
			return err
		}
		if err := s.activityRepo.Insert(ctx, tx, entry); err != nil {
			return err
		}
		updated = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft deletes the customer and appends one ledger entry in the same
// transaction. The row stays in the table so invoices keep their reference.
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
		customer, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrNotFound
		}
		if customer.Deleted() {
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
			EntityType:  activitydomain.EntityCustomer,
			EntityID:    id.String(),
			Summary:     "Deleted customer " + customer.Name,
		})
		if err != nil {
			return err
		}
		return s.activityRepo.Insert(ctx, tx, entry)
	})
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
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

func dereference(customers []*domain.Customer) []domain.Customer {
	out := make([]domain.Customer, 0, len(customers))
	for _, customer := range customers {
		if customer == nil {
			continue
		}
		out = append(out, *customer)
	}
	return out
}
