package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activitydomain "github.com/smallbiznis/bizhub/internal/activity/domain"
	activityrepo "github.com/smallbiznis/bizhub/internal/activity/repository"
	"github.com/smallbiznis/bizhub/internal/clock"
	"github.com/smallbiznis/bizhub/internal/config"
	"github.com/smallbiznis/bizhub/internal/invoice/domain"
	"github.com/smallbiznis/bizhub/internal/invoice/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS invoices (
		id BIGINT PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		currency TEXT NOT NULL,
		issued_at TIMESTAMP,
		due_at TIMESTAMP,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS invoice_items (
		id BIGINT PRIMARY KEY,
		invoice_id BIGINT NOT NULL,
		description TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		unit_amount_cents BIGINT NOT NULL,
		position INTEGER NOT NULL,
		voided_at TIMESTAMP,
		voided_by_user_id BIGINT,
		void_reason TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (invoice_id, position)
	)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS activity_logs (
		id BIGINT PRIMARY KEY,
		actor_user_id BIGINT,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		summary TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`).Error)
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	settings, err := config.NewStaticSettingsHolder(config.Settings{
		DefaultCurrency:     "USD",
		AllowedCurrencies:   []string{"USD", "EUR", "IDR"},
		FxMarkupBasisPoints: 0,
	})
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := &Service{
		db:           db,
		log:          zaptest.NewLogger(t),
		genID:        node,
		clock:        clk,
		settings:     settings,
		repo:         repository.Provide(),
		activityRepo: activityrepo.Provide(),
	}
	return svc, clk
}

func seedInvoiceWithItem(t *testing.T, svc *Service, itemID snowflake.ID) snowflake.ID {
	t.Helper()
	ctx := context.Background()
	now := svc.clock.Now().UTC()

	invoiceID := svc.genID.Generate()
	require.NoError(t, svc.repo.InsertInvoice(ctx, svc.db, &domain.Invoice{
		ID:         invoiceID,
		CustomerID: svc.genID.Generate(),
		Status:     domain.InvoiceStatusOpen,
		Currency:   "USD",
		Metadata:   normalizeMetadata(nil),
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
	require.NoError(t, svc.repo.InsertItem(ctx, svc.db, &domain.InvoiceItem{
		ID:              itemID,
		InvoiceID:       invoiceID,
		Description:     "Consulting hours",
		Quantity:        2,
		UnitAmountCents: 15000,
		Position:        1,
		Metadata:        normalizeMetadata(nil),
		CreatedAt:       now,
		UpdatedAt:       now,
	}))
	return invoiceID
}

func ledgerCount(t *testing.T, db *gorm.DB, entityType, entityID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&activitydomain.ActivityLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&count).Error)
	return count
}

func TestVoidItem(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	itemID := snowflake.ID(42)
	actor := snowflake.ID(7)
	seedInvoiceWithItem(t, svc, itemID)

	voided, err := svc.VoidItem(ctx, itemID, &actor, "customer cancelled")
	require.NoError(t, err)
	require.NotNil(t, voided.VoidedAt)
	require.NotNil(t, voided.VoidedByUserID)
	assert.Equal(t, actor, *voided.VoidedByUserID)
	require.NotNil(t, voided.VoidReason)
	assert.Equal(t, "customer cancelled", *voided.VoidReason)

	var entry activitydomain.ActivityLog
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", activitydomain.EntityInvoiceItem, "42").First(&entry).Error)
	assert.Equal(t, activitydomain.ActionVoid, entry.Action)
	assert.Equal(t, "Voided: customer cancelled", entry.Summary)
	require.NotNil(t, entry.ActorUserID)
	assert.Equal(t, actor, *entry.ActorUserID)
	assert.EqualValues(t, 1, ledgerCount(t, db, activitydomain.EntityInvoiceItem, "42"))
}

func TestVoidItemTwiceFails(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	itemID := snowflake.ID(42)
	actor := snowflake.ID(7)
	seedInvoiceWithItem(t, svc, itemID)

	_, err := svc.VoidItem(ctx, itemID, &actor, "customer cancelled")
	require.NoError(t, err)

	_, err = svc.VoidItem(ctx, itemID, &actor, "customer cancelled again")
	assert.ErrorIs(t, err, domain.ErrItemAlreadyVoided)
	assert.EqualValues(t, 1, ledgerCount(t, db, activitydomain.EntityInvoiceItem, "42"))

	item, err := svc.repo.FindItemByID(ctx, db, itemID)
	require.NoError(t, err)
	require.NotNil(t, item.VoidReason)
	assert.Equal(t, "customer cancelled", *item.VoidReason)
}

func TestVoidItemValidation(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	itemID := snowflake.ID(99)
	seedInvoiceWithItem(t, svc, itemID)

	_, err := svc.VoidItem(ctx, itemID, nil, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidReason)

	_, err = svc.VoidItem(ctx, snowflake.ID(123456), nil, "no such row")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	item, err := svc.repo.FindItemByID(ctx, db, itemID)
	require.NoError(t, err)
	assert.Nil(t, item.VoidedAt)
}

type failingLedger struct{}

func (failingLedger) Insert(ctx context.Context, db *gorm.DB, entry *activitydomain.ActivityLog) error {
	return errors.New("ledger append rejected")
}

func (failingLedger) List(ctx context.Context, db *gorm.DB, filter activitydomain.ListFilter) ([]*activitydomain.ActivityLog, error) {
	return nil, nil
}

func (failingLedger) CountByEntity(ctx context.Context, db *gorm.DB, entityType, entityID string) (int64, error) {
	return 0, nil
}

func TestVoidItemRollsBackWhenLedgerAppendFails(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	itemID := snowflake.ID(42)
	actor := snowflake.ID(7)
	seedInvoiceWithItem(t, svc, itemID)

	svc.activityRepo = failingLedger{}
	_, err := svc.VoidItem(ctx, itemID, &actor, "customer cancelled")
	require.Error(t, err)

	item, err := svc.repo.FindItemByID(ctx, db, itemID)
	require.NoError(t, err)
	assert.Nil(t, item.VoidedAt)
	assert.Nil(t, item.VoidedByUserID)
	assert.Nil(t, item.VoidReason)
	assert.EqualValues(t, 0, ledgerCount(t, db, activitydomain.EntityInvoiceItem, "42"))
}

func TestListActiveItemsExcludesVoided(t *testing.T) {
	db := newTestDB(t)
	svc, clk := newTestService(t, db)
	ctx := context.Background()

	itemID := snowflake.ID(42)
	actor := snowflake.ID(7)
	invoiceID := seedInvoiceWithItem(t, svc, itemID)

	second, err := svc.AddItem(ctx, invoiceID, domain.AddItemRequest{
		Description:     "Hosting",
		Quantity:        1,
		UnitAmountCents: 2500,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)

	clk.Advance(time.Minute)
	_, err = svc.VoidItem(ctx, itemID, &actor, "duplicate line")
	require.NoError(t, err)

	active, err := svc.ListActiveItems(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Nil(t, active[0].VoidedAt)

	all, err := svc.ListItems(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Position)
	assert.Equal(t, 2, all[1].Position)
}

func TestCreateInvoice(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	customerID := svc.genID.Generate()

	t.Run("unsupported currency", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateInvoiceRequest{
			CustomerID: customerID.String(),
			Currency:   "XXX",
		})
		assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
	})

	t.Run("defaults currency and records creation", func(t *testing.T) {
		invoice, err := svc.Create(ctx, domain.CreateInvoiceRequest{
			CustomerID: customerID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, "USD", invoice.Currency)
		assert.Equal(t, domain.InvoiceStatusDraft, invoice.Status)
		assert.EqualValues(t, 1, ledgerCount(t, db, activitydomain.EntityInvoice, invoice.ID.String()))
	})
}

func TestAddItemValidation(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	invoiceID := seedInvoiceWithItem(t, svc, snowflake.ID(77))

	_, err := svc.AddItem(ctx, invoiceID, domain.AddItemRequest{Description: "", Quantity: 1, UnitAmountCents: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidDescription)

	_, err = svc.AddItem(ctx, invoiceID, domain.AddItemRequest{Description: "Widget", Quantity: 0, UnitAmountCents: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, invoiceID, domain.AddItemRequest{Description: "Widget", Quantity: 1, UnitAmountCents: -5})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.AddItem(ctx, svc.genID.Generate(), domain.AddItemRequest{Description: "Widget", Quantity: 1, UnitAmountCents: 100})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// lostVoidRaceRepo reports zero affected rows from the guarded update, as
// happens when another writer voids the row between the read and the write.
type lostVoidRaceRepo struct {
	domain.Repository
}

func (lostVoidRaceRepo) MarkItemVoided(ctx context.Context, db *gorm.DB, id snowflake.ID, voidedAt time.Time, voidedBy *snowflake.ID, reason string) (int64, error) {
	return 0, nil
}

func TestVoidItemLosingRacerGetsAlreadyVoided(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	itemID := snowflake.ID(42)
	actor := snowflake.ID(7)
	seedInvoiceWithItem(t, svc, itemID)

	svc.repo = lostVoidRaceRepo{Repository: svc.repo}
	_, err := svc.VoidItem(ctx, itemID, &actor, "customer cancelled")
	assert.ErrorIs(t, err, domain.ErrItemAlreadyVoided)

	item, err := repository.Provide().FindItemByID(ctx, db, itemID)
	require.NoError(t, err)
	assert.Nil(t, item.VoidedAt)
	assert.Nil(t, item.VoidedByUserID)
	assert.Nil(t, item.VoidReason)
	assert.EqualValues(t, 0, ledgerCount(t, db, activitydomain.EntityInvoiceItem, "42"))
}

// stalePositionRepo hands out an already-taken position on the first call,
// the way two writers racing through the MAX(position) read both would.
type stalePositionRepo struct {
	domain.Repository
	stale int
	calls int
}

func (r *stalePositionRepo) NextPosition(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int, error) {
	r.calls++
	if r.calls == 1 {
		return r.stale, nil
	}
	return r.Repository.NextPosition(ctx, db, invoiceID)
}

func TestAddItemRetriesOnPositionCollision(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	invoiceID := seedInvoiceWithItem(t, svc, snowflake.ID(42))

	stale := &stalePositionRepo{Repository: svc.repo, stale: 1}
	svc.repo = stale

	item, err := svc.AddItem(ctx, invoiceID, domain.AddItemRequest{
		Description:     "Hosting",
		Quantity:        1,
		UnitAmountCents: 2500,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, item.Position)
	assert.Equal(t, 2, stale.calls)

	items, err := svc.ListItems(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Position)
	assert.Equal(t, 2, items[1].Position)
	assert.EqualValues(t, 1, ledgerCount(t, db, activitydomain.EntityInvoiceItem, item.ID.String()))
}
