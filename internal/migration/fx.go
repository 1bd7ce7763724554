package migration

import (
	activitydomain "github.com/smallbiznis/bizhub/internal/activity/domain"
	assetdomain "github.com/smallbiznis/bizhub/internal/asset/domain"
	"github.com/smallbiznis/bizhub/internal/config"
	customerdomain "github.com/smallbiznis/bizhub/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/bizhub/internal/invoice/domain"
	"github.com/smallbiznis/bizhub/internal/seed"
	userdomain "github.com/smallbiznis/bizhub/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, settings *config.SettingsHolder) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite deployments get the schema from the models.
			if err := conn.AutoMigrate(
				&userdomain.User{},
				&customerdomain.Customer{},
				&assetdomain.Asset{},
				&invoicedomain.Invoice{},
				&invoicedomain.InvoiceItem{},
				&activitydomain.ActivityLog{},
			); err != nil {
				return err
			}
		}

		if cfg.Bootstrap.EnsureAdmin {
			if err := seed.EnsureAdmin(conn, cfg); err != nil {
				return err
			}
		}
		if cfg.Bootstrap.SeedDemoData {
			return seed.EnsureDemoData(conn, settings)
		}
		return nil
	}),
)
