package seed

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/smallbiznis/triviabees/internal/config"
	eligibilitydomain "github.com/smallbiznis/triviabees/internal/eligibility/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureDefaultSettings writes the app_settings rows the service reads at
// runtime. Existing values are left untouched.
func EnsureDefaultSettings(db *gorm.DB, rewards config.RewardsConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	now := time.Now().UTC()
	settings := []eligibilitydomain.AppSetting{
		{
			Key:       eligibilitydomain.SettingDiamondThreshold,
			Value:     strconv.FormatInt(rewards.Eligibility.DiamondThreshold, 10),
			UpdatedAt: now,
		},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range settings {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoNothing: true,
			}).Create(&settings[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
