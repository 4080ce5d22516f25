package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/triviabees/pkg/db/pagination"
)

type DistributeRequest struct {
	OrderID string
}

type DistributeResult struct {
	OrderID            string          `json:"orderId"`
	CommissionPool     decimal.Decimal `json:"commissionPool"`
	DistributedCount   int             `json:"distributedCount"`
	TotalDistributed   decimal.Decimal `json:"totalDistributed"`
	AlreadyDistributed bool            `json:"alreadyDistributed"`
	Distributions      []Distribution  `json:"distributions"`
}

type ListCommissionRequest struct {
	UserID    string
	PageToken string
	PageSize  int
}

type ListCommissionResponse struct {
	pagination.PageInfo
	Commissions []CommissionRecord `json:"commissions"`
}

type Service interface {
	// Distribute splits the order's commission pool across up to three
	// uplines. Rerunning it for the same order writes nothing new and
	// reports AlreadyDistributed.
	Distribute(context.Context, DistributeRequest) (DistributeResult, error)
	ListByUser(context.Context, ListCommissionRequest) (ListCommissionResponse, error)
	// SettlePending approves pending commissions created before the cutoff.
	SettlePending(ctx context.Context, createdBefore time.Time) (int64, error)
}

var (
	ErrInvalidOrderID         = errors.New("invalid_order_id")
	ErrInvalidUserID          = errors.New("invalid_user_id")
	ErrOrderNotFound          = errors.New("order_not_found")
	ErrBeneficiaryNotFound    = errors.New("beneficiary_not_found")
	ErrDistributionInProgress = errors.New("distribution_in_progress")
)
