package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/triviabees/internal/profile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*domain.Profile, error) {
	return r.findOne(ctx, db, "referral_code = ?", code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg string) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.WithContext(ctx).
		Where(query, arg).
		Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repo) IncrementBalance(ctx context.Context, db *gorm.DB, id string, amount decimal.Decimal, at time.Time) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE profiles SET balance = balance + ?, updated_at = ? WHERE id = ?`,
		amount,
		at.UTC(),
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
