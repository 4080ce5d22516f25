package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/triviabees/internal/commission/domain"
	pkgdb "github.com/smallbiznis/triviabees/pkg/db"
	"github.com/smallbiznis/triviabees/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.CommissionRecord) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "level"}},
			DoNothing: true,
		}).
		Create(record)
	if pkgdb.IsDuplicateKeyErr(result.Error) {
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]domain.CommissionRecord, error) {
	var records []domain.CommissionRecord
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("level asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, cursor *pagination.Cursor, limit int) ([]domain.CommissionRecord, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.CommissionRecord{}).
		Where("user_id = ?", userID)
	if cursor != nil {
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		stmt = stmt.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursorID)
	}

	var records []domain.CommissionRecord
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ApprovePending(ctx context.Context, db *gorm.DB, createdBefore, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.CommissionRecord{}).
		Where("status = ? AND created_at < ?", domain.CommissionStatusPending, createdBefore.UTC()).
		Updates(map[string]any{
			"status":     domain.CommissionStatusApproved,
			"settled_at": at.UTC(),
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
