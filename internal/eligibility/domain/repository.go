package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	HasApprovedPurchase(ctx context.Context, db *gorm.DB, userID string) (bool, error)
	Setting(ctx context.Context, db *gorm.DB, key string) (string, bool, error)
}
