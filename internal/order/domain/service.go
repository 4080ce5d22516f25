package domain

import (
	"context"
	"errors"

	commissiondomain "github.com/smallbiznis/triviabees/internal/commission/domain"
)

type GetOrderRequest struct {
	ID string
}

type MarkPaidRequest struct {
	ID string
}

type MarkPaidResult struct {
	Order        Order                             `json:"order"`
	Distribution commissiondomain.DistributeResult `json:"distribution"`
}

type Service interface {
	Get(context.Context, GetOrderRequest) (Order, error)
	// MarkPaid transitions a pending order to paid and distributes its
	// commission. Calling it again for a paid order replays the distribution.
	MarkPaid(context.Context, MarkPaidRequest) (MarkPaidResult, error)
}

var (
	ErrInvalidID         = errors.New("invalid_order_id")
	ErrNotFound          = errors.New("order_not_found")
	ErrInvalidTransition = errors.New("invalid_order_transition")
)
