package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/triviabees/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert writes the record unless (order_id, level) already exists and
	// reports whether a row was written.
	Insert(ctx context.Context, db *gorm.DB, record *CommissionRecord) (bool, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]CommissionRecord, error)
	// ListByUser returns up to limit rows after cursor, newest first.
	ListByUser(ctx context.Context, db *gorm.DB, userID string, cursor *pagination.Cursor, limit int) ([]CommissionRecord, error)
	ApprovePending(ctx context.Context, db *gorm.DB, createdBefore, at time.Time) (int64, error)
}
