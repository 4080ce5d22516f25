package migration

import (
	"github.com/smallbiznis/triviabees/internal/config"
	"github.com/smallbiznis/triviabees/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, rewards *config.RewardsConfigHolder, log *zap.Logger) error {
		if !cfg.DBRunMigrations {
			log.Info("database migrations skipped")
			return nil
		}

		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}

		return seed.EnsureDefaultSettings(conn, rewards.Get())
	}),
)
