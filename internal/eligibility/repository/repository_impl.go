package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/triviabees/internal/eligibility/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) HasApprovedPurchase(ctx context.Context, db *gorm.DB, userID string) (bool, error) {
	var found bool
	err := db.WithContext(ctx).Raw(
		`SELECT EXISTS (SELECT 1 FROM membership_purchases WHERE user_id = ? AND status = ?)
		     OR EXISTS (SELECT 1 FROM diamond_purchases WHERE user_id = ? AND status = ?)`,
		userID, domain.PurchaseStatusApproved,
		userID, domain.PurchaseStatusApproved,
	).Scan(&found).Error
	if err != nil {
		return false, err
	}
	return found, nil
}

func (r *repo) Setting(ctx context.Context, db *gorm.DB, key string) (string, bool, error) {
	var setting domain.AppSetting
	err := db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}
