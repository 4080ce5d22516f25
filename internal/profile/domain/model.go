package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the per-user row holding the commission balance and diamonds.
type Profile struct {
	ID           string          `gorm:"type:text;primaryKey" json:"id"`
	ReferralCode string          `gorm:"type:text;not null;uniqueIndex:ux_profiles_referral_code" json:"referral_code"`
	Balance      decimal.Decimal `gorm:"type:numeric(38,16);not null;default:0" json:"balance"`
	Diamonds     int64           `gorm:"not null;default:0" json:"diamonds"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
