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
	"github.com/smallbiznis/bizhub/internal/clock"
	"github.com/smallbiznis/bizhub/internal/user/domain"
	"github.com/smallbiznis/bizhub/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
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
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		currency TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		deleted_at TIMESTAMP,
		deleted_by_user_id BIGINT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error)
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
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	return &Service{
		db:    db,
		log:   zaptest.NewLogger(t),
		genID: node,
		clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		repo:  repository.Provide(),
	}
}

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user, err := svc.Create(ctx, domain.CreateUserRequest{
		Email:       "Admin@Bizhub.Local",
		DisplayName: "Admin",
		Password:    "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@bizhub.local", user.Email)
	require.NotNil(t, user.PasswordHash)

	_, err = svc.Create(ctx, domain.CreateUserRequest{
		Email:       "admin@bizhub.local",
		DisplayName: "Other",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Email: "bad", DisplayName: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Email: "a@b.example", DisplayName: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestDeleteUserClearsReferences(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user, err := svc.Create(ctx, domain.CreateUserRequest{
		Email:       "actor@bizhub.local",
		DisplayName: "Actor",
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := activitydomain.ActivityLog{
		ID:          svc.genID.Generate(),
		ActorUserID: &user.ID,
		Action:      activitydomain.ActionVoid,
		EntityType:  activitydomain.EntityInvoiceItem,
		EntityID:    "42",
		Summary:     "Voided: duplicate line",
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
	}
	require.NoError(t, activityrepo.Provide().Insert(ctx, db, &entry))

	reason := "duplicate line"
	require.NoError(t, db.Exec(`INSERT INTO invoice_items (
		id, invoice_id, description, quantity, unit_amount_cents, position,
		voided_at, voided_by_user_id, void_reason, metadata, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '{}', ?, ?)`,
		42, 1, "Consulting", 1, 100, 1, now, user.ID, reason, now, now).Error)

	require.NoError(t, svc.Delete(ctx, user.ID.String()))

	_, err = svc.GetByID(ctx, user.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var stored activitydomain.ActivityLog
	require.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Nil(t, stored.ActorUserID)
	assert.Equal(t, "Voided: duplicate line", stored.Summary)

	type itemRow struct {
		VoidedByUserID *int64
		VoidReason     *string
		VoidedAt       *time.Time
	}
	var item itemRow
	require.NoError(t, db.Table("invoice_items").Where("id = ?", 42).
		Select("voided_by_user_id", "void_reason", "voided_at").Scan(&item).Error)
	assert.Nil(t, item.VoidedByUserID)
	require.NotNil(t, item.VoidedAt)
	require.NotNil(t, item.VoidReason)
	assert.Equal(t, reason, *item.VoidReason)
}

func TestDeleteUserNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	err := svc.Delete(context.Background(), svc.genID.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
