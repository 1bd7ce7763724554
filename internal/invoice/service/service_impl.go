package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/bizhub/internal/activity/domain"
	activitysvc "github.com/smallbiznis/bizhub/internal/activity/service"
	"github.com/smallbiznis/bizhub/internal/actorcontext"
	"github.com/smallbiznis/bizhub/internal/clock"
	"github.com/smallbiznis/bizhub/internal/config"
	"github.com/smallbiznis/bizhub/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/bizhub/internal/observability/metrics"
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

	// Concurrent AddItem calls may compute the same position; the unique
	// index rejects the loser, who recomputes and tries again.
	maxPositionRetries = 3
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
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	settings     *config.SettingsHolder
	repo         domain.Repository
	activityRepo activitydomain.Repository
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("invoice.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		settings:     p.Settings,
		repo:         p.Repo,
		activityRepo: p.ActivityRepo,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return nil, domain.ErrInvalidCustomer
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.settings.Current().DefaultCurrency
	}
	if !s.settings.Current().AllowsCurrency(currency) {
		return nil, domain.ErrUnsupportedCurrency
	}

	now := s.clock.Now().UTC()
	invoice := &domain.Invoice{
		ID:         s.genID.Generate(),
		CustomerID: customerID,
		Status:     domain.InvoiceStatusDraft,
		Currency:   currency,
		DueAt:      req.DueAt,
		Metadata:   normalizeMetadata(req.Metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertInvoice(ctx, tx, invoice); err != nil {
			return err
		}
		entry, err := activitysvc.BuildEntry(ctx, s.genID, now, activitydomain.RecordRequest{
			Action:     activitydomain.ActionCreate,
			EntityType: activitydomain.EntityInvoice,
			EntityID:   invoice.ID.String(),
			Summary:    "Created invoice in " + currency,
			Metadata:   map[string]any{"customer_id": customerID.String()},
		})
		if err != nil {
			return err
		}
		return s.activityRepo.Insert(ctx, tx, entry)
	})
	if err != nil {
		s.log.Warn("failed to create invoice", zap.Error(err))
		return nil, err
	}
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoicesRequest) (domain.ListInvoicesResponse, error) {
	var customerID *snowflake.ID
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed == 0 {
			return domain.ListInvoicesResponse{}, domain.ErrInvalidCustomer
		}
		customerID = &parsed
	}

	status := domain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	switch status {
	case "", domain.InvoiceStatusDraft, domain.InvoiceStatusOpen, domain.InvoiceStatusPaid, domain.InvoiceStatusVoid:
	default:
		return domain.ListInvoicesResponse{}, domain.ErrInvalidStatus
	}

	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListInvoicesResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListInvoicesResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListInvoicesResponse{}, domain.ErrInvalidPageToken
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

	invoices, err := s.repo.ListInvoices(ctx, s.db, domain.ListFilter{
		CustomerID: customerID,
		Status:     status,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return domain.ListInvoicesResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(invoices, int32(pageSize), func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(invoices) > pageSize {
		invoices = invoices[:pageSize]
	}

	resp := domain.ListInvoicesResponse{Invoices: dereference(invoices)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) AddItem(ctx context.Context, invoiceID snowflake.ID, req domain.AddItemRequest) (*domain.InvoiceItem, error) {
	if invoiceID == 0 {
		return nil, domain.ErrInvalidID
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.ErrInvalidDescription
	}
	if req.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if req.UnitAmountCents < 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := s.clock.Now().UTC()
	item := &domain.InvoiceItem{
		ID:              s.genID.Generate(),
		InvoiceID:       invoiceID,
		Description:     description,
		Quantity:        req.Quantity,
		UnitAmountCents: req.UnitAmountCents,
		Metadata:        normalizeMetadata(nil),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var err error
	for attempt := 0; attempt < maxPositionRetries; attempt++ {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			invoice, err := s.repo.FindInvoiceByID(ctx, tx, invoiceID)
			if err != nil {
				return err
			}
			if invoice == nil {
				return domain.ErrNotFound
			}

			position, err := s.repo.NextPosition(ctx, tx, invoiceID)
			if err != nil {
				return err
			}
			item.Position = position

			if err := s.repo.InsertItem(ctx, tx, item); err != nil {
				return err
			}

			entry, err := activitysvc.BuildEntry(ctx, s.genID, now, activitydomain.RecordRequest{
				Action:     activitydomain.ActionCreate,
				EntityType: activitydomain.EntityInvoiceItem,
				EntityID:   item.ID.String(),
				Summary:    "Added line: " + description,
				Metadata:   map[string]any{"invoice_id": invoiceID.String()},
			})
			if err != nil {
				return err
			}
			return s.activityRepo.Insert(ctx, tx, entry)
		})
		if err == nil {
			return item, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		s.log.Warn("invoice item position collision, retrying",
			zap.String("invoice_id", invoiceID.String()),
			zap.Int("position", item.Position),
		)
	}
	return nil, err
}

// VoidItem performs the single Active to Voided transition. The void fields
// and the ledger entry commit in one transaction, so a reader can never see
// one without the other. A second void attempt is an error, not a no-op.
func (s *Service) VoidItem(ctx context.Context, itemID snowflake.ID, actingUserID *snowflake.ID, reason string) (*domain.InvoiceItem, error) {
	if itemID == 0 {
		return nil, domain.ErrItemNotFound
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrInvalidReason
	}
	if actingUserID == nil {
		if ctxActor, ok := actorcontext.ActorFromContext(ctx); ok {
			actingUserID = &ctxActor
		}
	}

	var voided *domain.InvoiceItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindItemByID(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		if item.Voided() {
			return domain.ErrItemAlreadyVoided
		}

		now := s.clock.Now().UTC()
		affected, err := s.repo.MarkItemVoided(ctx, tx, itemID, now, actingUserID, reason)
		if err != nil {
			return err
		}
		if affected == 0 {
			// Another writer voided the row between our read and write.
			return domain.ErrItemAlreadyVoided
		}

		entry, err := activitysvc.BuildEntry(ctx, s.genID, now, activitydomain.RecordRequest{
			ActorUserID: actingUserID,
			Action:      activitydomain.ActionVoid,
			EntityType:  activitydomain.EntityInvoiceItem,
			EntityID:    itemID.String(),
			Summary:     "Voided: " + reason,
			Metadata:    map[string]any{"invoice_id": item.InvoiceID.String()},
		})
		if err != nil {
			return err
		}
		if err := s.activityRepo.Insert(ctx, tx, entry); err != nil {
			return err
		}

		item.VoidedAt = &now
		item.VoidedByUserID = actingUserID
		item.VoidReason = &reason
		item.UpdatedAt = now
		voided = item
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrItemAlreadyVoided) {
			s.obsMetrics.RecordVoidConflict()
		}
		return nil, err
	}

	s.obsMetrics.RecordItemVoid()
	return voided, nil
}

func (s *Service) ListActiveItems(ctx context.Context, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	return s.listItems(ctx, invoiceID, true)
}

func (s *Service) ListItems(ctx context.Context, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	return s.listItems(ctx, invoiceID, false)
}

func (s *Service) listItems(ctx context.Context, invoiceID snowflake.ID, activeOnly bool) ([]domain.InvoiceItem, error) {
	if invoiceID == 0 {
		return nil, domain.ErrInvalidID
	}
	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, invoiceID, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]domain.InvoiceItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
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

func dereference(invoices []*domain.Invoice) []domain.Invoice {
	out := make([]domain.Invoice, 0, len(invoices))
	for _, invoice := range invoices {
		if invoice == nil {
			continue
		}
		out = append(out, *invoice)
	}
	return out
}
