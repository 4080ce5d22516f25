package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettingDiamondThreshold overrides the configured diamond threshold at runtime.
const SettingDiamondThreshold = "marketplace_diamond_threshold"

const PurchaseStatusApproved = "approved"

type AppSetting struct {
	Key       string    `gorm:"type:text;primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AppSetting) TableName() string { return "app_settings" }

type MembershipPurchase struct {
	ID        string          `gorm:"type:text;primaryKey" json:"id"`
	UserID    string          `gorm:"type:text;not null;index:ix_membership_purchases_user_status,priority:1" json:"user_id"`
	Status    string          `gorm:"type:text;not null;index:ix_membership_purchases_user_status,priority:2" json:"status"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (MembershipPurchase) TableName() string { return "membership_purchases" }

type DiamondPurchase struct {
	ID        string          `gorm:"type:text;primaryKey" json:"id"`
	UserID    string          `gorm:"type:text;not null;index:ix_diamond_purchases_user_status,priority:1" json:"user_id"`
	Status    string          `gorm:"type:text;not null;index:ix_diamond_purchases_user_status,priority:2" json:"status"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (DiamondPurchase) TableName() string { return "diamond_purchases" }
