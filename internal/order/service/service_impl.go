package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/triviabees/internal/clock"
	commissiondomain "github.com/smallbiznis/triviabees/internal/commission/domain"
	"github.com/smallbiznis/triviabees/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Repo          domain.Repository
	CommissionSvc commissiondomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	repo          domain.Repository
	commissionSvc commissiondomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("order.service"),
		clock:         p.Clock,
		repo:          p.Repo,
		commissionSvc: p.CommissionSvc,
	}
}

func (s *Service) Get(ctx context.Context, req domain.GetOrderRequest) (domain.Order, error) {
	order, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) MarkPaid(ctx context.Context, req domain.MarkPaidRequest) (domain.MarkPaidResult, error) {
	order, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.MarkPaidResult{}, err
	}

	if order.Status == domain.OrderStatusPending {
		changed, err := s.repo.UpdateStatus(ctx, s.db, order.ID,
			[]domain.OrderStatus{domain.OrderStatusPending},
			domain.OrderStatusPaid,
			s.clock.Now(),
		)
		if err != nil {
			return domain.MarkPaidResult{}, err
		}
		if changed {
			s.log.Info("order marked paid", zap.String("order_id", order.ID))
		}
		// Reload either way: a concurrent writer may have moved the order.
		if order, err = s.load(ctx, order.ID); err != nil {
			return domain.MarkPaidResult{}, err
		}
	}

	if !order.Status.Settled() {
		return domain.MarkPaidResult{Order: *order}, domain.ErrInvalidTransition
	}

	dist, err := s.commissionSvc.Distribute(ctx, commissiondomain.DistributeRequest{OrderID: order.ID})
	if err != nil {
		s.log.Warn("commission distribution failed after payment",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return domain.MarkPaidResult{Order: *order}, err
	}

	return domain.MarkPaidResult{Order: *order, Distribution: dist}, nil
}

func (s *Service) load(ctx context.Context, rawID string) (*domain.Order, error) {
	id := strings.TrimSpace(rawID)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}
