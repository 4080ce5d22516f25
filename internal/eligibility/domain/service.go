package domain

import "context"

// Result carries the individual facts behind the gate for UI display.
type Result struct {
	UserID            string `json:"userId"`
	IsEligible        bool   `json:"isEligible"`
	ReferralCount     int64  `json:"referralCount"`
	RequiredReferrals int64  `json:"requiredReferrals"`
	Diamonds          int64  `json:"diamonds"`
	DiamondThreshold  int64  `json:"diamondThreshold"`
	HasPurchase       bool   `json:"hasPurchase"`
	Degraded          bool   `json:"degraded,omitempty"`
}

type Service interface {
	// Check never fails; lookup errors yield a non-eligible, degraded result.
	Check(ctx context.Context, userID string) Result
}

// Eligible applies the marketplace gate to already-collected facts.
func Eligible(referralCount, requiredReferrals, diamonds, diamondThreshold int64, hasPurchase bool) bool {
	if referralCount < requiredReferrals {
		return false
	}
	return diamonds >= diamondThreshold || hasPurchase
}
