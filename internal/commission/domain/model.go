package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusApproved CommissionStatus = "approved"
)

// CommissionRecord is one ledger line: the payout to a single upline level
// for a single order. (order_id, level) is unique, which makes replays no-ops.
type CommissionRecord struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrderID      string            `gorm:"type:text;not null;uniqueIndex:ux_commission_records_order_level,priority:1" json:"order_id"`
	Level        int               `gorm:"not null;uniqueIndex:ux_commission_records_order_level,priority:2" json:"level"`
	UserID       string            `gorm:"type:text;not null;index:ix_commission_records_user_created,priority:1" json:"user_id"`
	SourceUserID string            `gorm:"type:text;not null" json:"source_user_id"`
	Percentage   decimal.Decimal   `gorm:"type:numeric(7,4);not null" json:"percentage"`
	Amount       decimal.Decimal   `gorm:"type:numeric(38,16);not null" json:"amount"`
	Status       CommissionStatus  `gorm:"type:text;not null;default:'pending'" json:"status"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	SettledAt    *time.Time        `json:"settled_at,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_commission_records_user_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CommissionRecord) TableName() string { return "commission_records" }
