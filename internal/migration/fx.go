package migration

import (
	"context"

	"github.com/smallbiznis/streamhub/internal/config"
	"github.com/smallbiznis/streamhub/internal/seed"
	"github.com/smallbiznis/streamhub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, seeder *seed.Seeder, log *zap.Logger) error {
		log = log.Named("migration")
		if cfg.DBRunMigrations {
			if db.IsSQLite(conn) {
				if err := AutoMigrate(conn); err != nil {
					return err
				}
			} else {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := RunMigrations(sqlDB); err != nil {
					return err
				}
			}
			log.Info("schema up to date")
		}
		return seeder.Run(context.Background())
	}),
)
