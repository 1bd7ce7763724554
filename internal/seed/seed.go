// Package seed bootstraps a fresh database with the records a self-hosted
// install needs to be usable immediately.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/internal/config"
	customerdomain "github.com/smallbiznis/bizhub/internal/customer/domain"
	userdomain "github.com/smallbiznis/bizhub/internal/user/domain"
	"github.com/smallbiznis/bizhub/internal/user/password"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@bizhub.local"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "BizHub Admin"
)

// EnsureAdmin seeds the admin user when none exists. Safe to run on every
// startup.
func EnsureAdmin(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.Bootstrap.AdminEmail))
	if email == "" {
		email = defaultAdminEmail
	}
	adminPassword := cfg.Bootstrap.AdminPassword
	if adminPassword == "" {
		adminPassword = defaultAdminPassword
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userdomain.User
		err := tx.WithContext(ctx).
			Where("email = ?", email).
			First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(adminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = userdomain.User{
			ID:           node.Generate(),
			Email:        email,
			DisplayName:  defaultAdminDisplay,
			PasswordHash: &hashed,
			IsAdmin:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}

// EnsureDemoData seeds a sample customer so a fresh install has something
// to look at. Skipped when any customer already exists.
func EnsureDemoData(db *gorm.DB, settings *config.SettingsHolder) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	currency := "USD"
	if settings != nil {
		currency = settings.Current().DefaultCurrency
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&customerdomain.Customer{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		demo := customerdomain.Customer{
			ID:        node.Generate(),
			Name:      "Demo Customer",
			Email:     "demo@bizhub.local",
			Currency:  currency,
			Metadata:  datatypes.JSONMap{"seeded": true},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&demo).Error
	})
}
