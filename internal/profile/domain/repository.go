package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("profile_not_found")

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Profile, error)
	FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*Profile, error)
	// IncrementBalance returns ErrNotFound when no profile row matched.
	IncrementBalance(ctx context.Context, db *gorm.DB, id string, amount decimal.Decimal, at time.Time) error
}
