package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activitydomain "github.com/smallbiznis/bizhub/internal/activity/domain"
	activityrepo "github.com/smallbiznis/bizhub/internal/activity/repository"
	"github.com/smallbiznis/bizhub/internal/asset/domain"
	"github.com/smallbiznis/bizhub/internal/asset/repository"
	"github.com/smallbiznis/bizhub/internal/clock"
	"github.com/smallbiznis/bizhub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS assets (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		quantity BIGINT NOT NULL,
		cost_amount_cents BIGINT NOT NULL,
		cost_currency TEXT NOT NULL,
		price_amount_cents BIGINT NOT NULL,
		price_currency TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		deleted_at TIMESTAMP,
		deleted_by_user_id BIGINT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
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

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	settings, err := config.NewStaticSettingsHolder(config.Settings{
		DefaultCurrency:   "USD",
		AllowedCurrencies: []string{"USD", "IDR"},
	})
	require.NoError(t, err)

	return &Service{
		db:           db,
		log:          zaptest.NewLogger(t),
		genID:        node,
		clock:        clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		settings:     settings,
		repo:         repository.Provide(),
		activityRepo: activityrepo.Provide(),
	}
}

func TestCreateAsset(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	asset, err := svc.Create(ctx, domain.CreateAssetRequest{
		Name:     "Standing Desk (Oak)",
		Quantity: 5,
		Cost:     domain.Money{AmountCents: 1200000, Currency: "idr"},
		Price:    domain.Money{AmountCents: 299, Currency: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "standing-desk-oak", asset.Slug)
	assert.Equal(t, "IDR", asset.CostCurrency)
	assert.Equal(t, "USD", asset.PriceCurrency)

	var count int64
	require.NoError(t, db.Model(&activitydomain.ActivityLog{}).
		Where("entity_type = ? AND entity_id = ?", activitydomain.EntityAsset, asset.ID.String()).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateAssetValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	valid := domain.CreateAssetRequest{
		Name:     "Widget",
		Quantity: 1,
		Cost:     domain.Money{AmountCents: 100, Currency: "USD"},
		Price:    domain.Money{AmountCents: 200, Currency: "USD"},
	}

	req := valid
	req.Name = "  "
	_, err := svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	req = valid
	req.Quantity = 0
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	req = valid
	req.Cost.AmountCents = -1
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	req = valid
	req.Price.Currency = "GBP"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)

	_, err = svc.Create(ctx, valid)
	require.NoError(t, err)
	_, err = svc.Create(ctx, valid)
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)
}

func TestDeleteAsset(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	asset, err := svc.Create(ctx, domain.CreateAssetRequest{
		Name:     "Widget",
		Quantity: 1,
		Cost:     domain.Money{AmountCents: 100, Currency: "USD"},
		Price:    domain.Money{AmountCents: 200, Currency: "USD"},
	})
	require.NoError(t, err)

	actor := svc.genID.Generate()
	require.NoError(t, svc.Delete(ctx, asset.ID, &actor))

	err = svc.Delete(ctx, asset.ID, &actor)
	assert.ErrorIs(t, err, domain.ErrAlreadyDeleted)

	resp, err := svc.List(ctx, domain.ListAssetsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Assets)

	all, err := svc.List(ctx, domain.ListAssetsRequest{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all.Assets, 1)
	require.NotNil(t, all.Assets[0].DeletedByUserID)
	assert.Equal(t, actor, *all.Assets[0].DeletedByUserID)
}

func TestUpdateAsset(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	asset, err := svc.Create(ctx, domain.CreateAssetRequest{
		Name:     "Widget",
		Quantity: 1,
		Cost:     domain.Money{AmountCents: 100, Currency: "USD"},
		Price:    domain.Money{AmountCents: 200, Currency: "USD"},
	})
	require.NoError(t, err)

	name := "Widget Pro"
	quantity := int64(3)
	updated, err := svc.Update(ctx, asset.ID, domain.UpdateAssetRequest{Name: &name, Quantity: &quantity})
	require.NoError(t, err)
	assert.Equal(t, "widget-pro", updated.Slug)
	assert.EqualValues(t, 3, updated.Quantity)

	zero := int64(0)
	_, err = svc.Update(ctx, asset.ID, domain.UpdateAssetRequest{Quantity: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
