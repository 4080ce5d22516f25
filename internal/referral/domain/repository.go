package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*Referral, error)
	CountReferred(ctx context.Context, db *gorm.DB, referrerID string) (int64, error)
}
