package domain

import "time"

// Referral is the edge from a user to the user who referred them. A user
// without a row, or with a nil ReferredBy, is a root of the referral forest.
type Referral struct {
	UserID     string    `gorm:"type:text;primaryKey" json:"user_id"`
	ReferredBy *string   `gorm:"type:text;index:ix_referrals_referred_by" json:"referred_by,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Referral) TableName() string { return "referrals" }
