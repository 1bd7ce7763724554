package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/bizhub/internal/activity/domain"
	"github.com/smallbiznis/bizhub/internal/activity/repository"
	"github.com/smallbiznis/bizhub/internal/clock"
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

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) (*Service, *snowflake.Node) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := &Service{
		db:    db,
		log:   zaptest.NewLogger(t),
		genID: node,
		clock: clk,
		repo:  repository.Provide(),
	}
	return svc, node
}

func TestRecordThenQueryByEntityNewestFirst(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	ctx := context.Background()

	actor := node.Generate()
	first, err := svc.Record(ctx, domain.RecordRequest{
		ActorUserID: &actor,
		Action:      domain.ActionPayment,
		EntityType:  domain.EntityInvoice,
		EntityID:    "7",
		Summary:     "Received $100",
	})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	second, err := svc.Record(ctx, domain.RecordRequest{
		ActorUserID: &actor,
		Action:      domain.ActionRefund,
		EntityType:  domain.EntityInvoice,
		EntityID:    "7",
		Summary:     "Refunded $25",
	})
	require.NoError(t, err)

	entries, err := svc.QueryByEntity(ctx, domain.EntityInvoice, "7")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, first, entries[1].ID)
	assert.Equal(t, domain.ActionRefund, entries[0].Action)
}

func TestRecordValidation(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db, clock.SystemClock{})
	ctx := context.Background()

	base := domain.RecordRequest{
		Action:     domain.ActionPayment,
		EntityType: domain.EntityInvoice,
		EntityID:   "7",
		Summary:    "Received $100",
	}

	t.Run("empty action", func(t *testing.T) {
		req := base
		req.Action = "  "
		_, err := svc.Record(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidAction)
	})

	t.Run("empty entity type", func(t *testing.T) {
		req := base
		req.EntityType = ""
		_, err := svc.Record(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidEntityType)
	})

	t.Run("unknown entity type", func(t *testing.T) {
		req := base
		req.EntityType = "Spaceship"
		_, err := svc.Record(ctx, req)
		assert.ErrorIs(t, err, domain.ErrUnknownEntityType)
	})

	t.Run("empty entity id", func(t *testing.T) {
		req := base
		req.EntityID = ""
		_, err := svc.Record(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidEntityID)
	})

	t.Run("empty summary", func(t *testing.T) {
		req := base
		req.Summary = "   "
		_, err := svc.Record(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidSummary)
	})
}

func TestRecordWithNilActor(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db, clock.SystemClock{})
	ctx := context.Background()

	id, err := svc.Record(ctx, domain.RecordRequest{
		Action:     domain.ActionPayment,
		EntityType: domain.EntityInvoice,
		EntityID:   "7",
		Summary:    "Received $100",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	entries, err := svc.QueryByEntity(ctx, domain.EntityInvoice, "7")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorUserID)
}

func TestQueryByActor(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, node := newTestService(t, db, clk)
	ctx := context.Background()

	alice := node.Generate()
	bob := node.Generate()

	_, err := svc.Record(ctx, domain.RecordRequest{
		ActorUserID: &alice,
		Action:      domain.ActionCreate,
		EntityType:  domain.EntityCustomer,
		EntityID:    "1",
		Summary:     "Created customer",
	})
	require.NoError(t, err)

	clk.Advance(time.Second)
	_, err = svc.Record(ctx, domain.RecordRequest{
		ActorUserID: &bob,
		Action:      domain.ActionDelete,
		EntityType:  domain.EntityCustomer,
		EntityID:    "1",
		Summary:     "Deleted customer",
	})
	require.NoError(t, err)

	entries, err := svc.QueryByActor(ctx, alice)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreate, entries[0].Action)

	_, err = svc.QueryByActor(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidActor)
}

func TestQueryByActionTimeRange(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, db, clk)
	ctx := context.Background()

	_, err := svc.Record(ctx, domain.RecordRequest{
		Action:     domain.ActionVoid,
		EntityType: domain.EntityInvoiceItem,
		EntityID:   "42",
		Summary:    "Voided: duplicate line",
	})
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = svc.Record(ctx, domain.RecordRequest{
		Action:     domain.ActionVoid,
		EntityType: domain.EntityInvoiceItem,
		EntityID:   "43",
		Summary:    "Voided: customer cancelled",
	})
	require.NoError(t, err)

	start := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	entries, err := svc.QueryByAction(ctx, domain.ActionVoid, &start, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "43", entries[0].EntityID)

	end := start.Add(-2 * time.Hour)
	_, err = svc.QueryByAction(ctx, domain.ActionVoid, &start, &end)
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
}

func TestListPagination(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, db, clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, domain.RecordRequest{
			Action:     domain.ActionUpdate,
			EntityType: domain.EntityAsset,
			EntityID:   fmt.Sprintf("%d", i),
			Summary:    "Adjusted price",
		})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}

	all, err := svc.List(ctx, domain.ListRequest{Action: domain.ActionUpdate})
	require.NoError(t, err)
	assert.Len(t, all.Entries, 3)

	req := domain.ListRequest{Action: domain.ActionUpdate}
	req.PageSize = 2
	page, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	require.True(t, page.HasMore)
	require.NotEmpty(t, page.NextPageToken)
	assert.Equal(t, "2", page.Entries[0].EntityID)

	next := domain.ListRequest{Action: domain.ActionUpdate}
	next.PageSize = 2
	next.PageToken = page.NextPageToken
	rest, err := svc.List(ctx, next)
	require.NoError(t, err)
	require.Len(t, rest.Entries, 1)
	assert.Equal(t, "0", rest.Entries[0].EntityID)
	assert.False(t, rest.HasMore)

	bad := domain.ListRequest{}
	bad.PageToken = "@@@not-a-token@@@"
	_, err = svc.List(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestQueryByEntityCapsResultCount(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, db, clk)
	ctx := context.Background()

	var newest snowflake.ID
	for i := 0; i < defaultQueryLimit+1; i++ {
		id, err := svc.Record(ctx, domain.RecordRequest{
			Action:     domain.ActionUpdate,
			EntityType: domain.EntityInvoice,
			EntityID:   "7",
			Summary:    fmt.Sprintf("Revision %d", i),
		})
		require.NoError(t, err)
		newest = id
		clk.Advance(time.Second)
	}

	entries, err := svc.QueryByEntity(ctx, domain.EntityInvoice, "7")
	require.NoError(t, err)
	require.Len(t, entries, defaultQueryLimit)
	assert.Equal(t, newest, entries[0].ID)
}
