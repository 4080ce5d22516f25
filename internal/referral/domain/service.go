package domain

import (
	"context"
	"errors"
)

type ValidateCodeRequest struct {
	Code string
}

type ValidateCodeResult struct {
	Valid      bool   `json:"valid"`
	ReferrerID string `json:"referrerId,omitempty"`
}

type Service interface {
	ValidateCode(context.Context, ValidateCodeRequest) (ValidateCodeResult, error)
	// Uplines walks referred_by edges from userID, nearest first, returning at
	// most depth ids. The walk stops at a root or when a user repeats.
	Uplines(ctx context.Context, userID string, depth int) ([]string, error)
	CountReferrals(ctx context.Context, userID string) (int64, error)
}

var (
	ErrInvalidReferralCode = errors.New("invalid_referral_code")
	ErrInvalidUserID       = errors.New("invalid_user_id")
)
