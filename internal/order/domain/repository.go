package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// FindByID loads the order with its items, or nil when absent.
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Order, error)
	// UpdateStatus moves the order to status only if it is currently in one
	// of from, returning whether a row changed.
	UpdateStatus(ctx context.Context, db *gorm.DB, id string, from []OrderStatus, to OrderStatus, at time.Time) (bool, error)
}
