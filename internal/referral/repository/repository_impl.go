package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/triviabees/internal/referral/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.Referral, error) {
	var referral domain.Referral
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *repo) CountReferred(ctx context.Context, db *gorm.DB, referrerID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Referral{}).
		Where("referred_by = ?", referrerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
