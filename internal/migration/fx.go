package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	clientdomain "github.com/tarumnet/mikrobill/internal/client/domain"
	"github.com/tarumnet/mikrobill/internal/config"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
	"github.com/tarumnet/mikrobill/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, portal *config.PortalConfigHolder) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev conveniences; gorm keeps their
			// schema in step with the models.
			err := conn.AutoMigrate(
				&plandomain.Plan{},
				&clientdomain.Client{},
				&saledomain.Sale{},
			)
			if err != nil {
				return err
			}
		}

		return seed.EnsureDefaultPlans(conn, portal.Get().DefaultCurrency)
	}),
)
