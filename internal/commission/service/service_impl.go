package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/triviabees/internal/clock"
	"github.com/smallbiznis/triviabees/internal/commission/domain"
	"github.com/smallbiznis/triviabees/internal/config"
	obslogger "github.com/smallbiznis/triviabees/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/triviabees/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/triviabees/internal/order/domain"
	profiledomain "github.com/smallbiznis/triviabees/internal/profile/domain"
	"github.com/smallbiznis/triviabees/internal/ratelimit"
	referraldomain "github.com/smallbiznis/triviabees/internal/referral/domain"
	"github.com/smallbiznis/triviabees/pkg/db/pagination"
	"github.com/smallbiznis/triviabees/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const lockTimeout = 2 * time.Second

// errAlreadyDistributed rolls back a run that finds the order already paid out.
var errAlreadyDistributed = errors.New("already_distributed")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Rewards     *config.RewardsConfigHolder
	Repo        domain.Repository
	OrderRepo   orderdomain.Repository
	ProfileRepo profiledomain.Repository
	ReferralSvc referraldomain.Service
	Locker      *ratelimit.DistributionLocker `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics           `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	rewards     *config.RewardsConfigHolder
	repo        domain.Repository
	orderRepo   orderdomain.Repository
	profileRepo profiledomain.Repository
	referralSvc referraldomain.Service
	locker      *ratelimit.DistributionLocker
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("commission.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		rewards:     p.Rewards,
		repo:        p.Repo,
		orderRepo:   p.OrderRepo,
		profileRepo: p.ProfileRepo,
		referralSvc: p.ReferralSvc,
		locker:      p.Locker,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Distribute(ctx context.Context, req domain.DistributeRequest) (domain.DistributeResult, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.DistributeResult{}, domain.ErrInvalidOrderID
	}
	log := obslogger.WithOrder(s.log, orderID)

	release, err := s.lockOrder(ctx, log, orderID)
	if err != nil {
		return domain.DistributeResult{}, err
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.DistributeResult{}, err
	}
	if order == nil {
		return domain.DistributeResult{}, domain.ErrOrderNotFound
	}

	lines := make([]domain.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, domain.Line{
			TotalPrice:           item.TotalPrice,
			CommissionPercentage: item.CommissionPercentage,
		})
	}
	pool := domain.Pool(lines)

	result := domain.DistributeResult{
		OrderID:          orderID,
		CommissionPool:   pool,
		TotalDistributed: decimal.Zero,
		Distributions:    []domain.Distribution{},
	}

	existing, err := s.repo.ListByOrder(ctx, s.db, orderID)
	if err != nil {
		return domain.DistributeResult{}, err
	}
	if len(existing) > 0 {
		return s.replay(ctx, log, result), nil
	}

	levels := s.rewards.Get().Commission.Levels
	uplines, err := s.referralSvc.Uplines(ctx, order.UserID, len(levels))
	if err != nil {
		return domain.DistributeResult{}, err
	}
	plan := domain.Plan(pool, uplines, levels)
	if len(plan) == 0 {
		log.Info("no commission to distribute",
			zap.String("pool", pool.String()),
			zap.Int("uplines", len(uplines)),
		)
		s.obsMetrics.RecordDistribution(ctx, "no_upline")
		return result, nil
	}

	_, cid := correlation.EnsureCorrelationID(ctx)
	now := s.clock.Now()
	var applied []domain.Distribution
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied = applied[:0]

		// An order pays out once. Records written by an earlier run end the
		// run even when the upline chain or level table has changed since.
		prior, err := s.repo.ListByOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(prior) > 0 {
			return errAlreadyDistributed
		}

		for _, d := range plan {
			record := domain.CommissionRecord{
				ID:           s.genID.Generate(),
				OrderID:      orderID,
				Level:        d.Level,
				UserID:       d.UserID,
				SourceUserID: order.UserID,
				Percentage:   d.Percentage,
				Amount:       d.Amount,
				Status:       domain.CommissionStatusPending,
				Metadata: datatypes.JSONMap{
					"pool":           pool.String(),
					"correlation_id": cid,
				},
				CreatedAt: now,
				UpdatedAt: now,
			}
			inserted, err := s.repo.Insert(ctx, tx, &record)
			if err != nil {
				return err
			}
			if !inserted {
				return errAlreadyDistributed
			}
			if err := s.profileRepo.IncrementBalance(ctx, tx, d.UserID, d.Amount, now); err != nil {
				if errors.Is(err, profiledomain.ErrNotFound) {
					log.Warn("commission beneficiary has no profile",
						zap.String("user_id", d.UserID),
						zap.Int("level", d.Level),
					)
					return domain.ErrBeneficiaryNotFound
				}
				return err
			}
			applied = append(applied, d)
		}
		return nil
	})
	if errors.Is(err, errAlreadyDistributed) {
		return s.replay(ctx, log, result), nil
	}
	if err != nil {
		s.obsMetrics.RecordDistribution(ctx, "failed")
		return domain.DistributeResult{}, err
	}

	result.DistributedCount = len(applied)
	result.TotalDistributed = domain.Total(applied)
	result.Distributions = append(result.Distributions, applied...)

	s.obsMetrics.RecordDistribution(ctx, "distributed")
	for _, d := range applied {
		s.obsMetrics.RecordCommissionLevel(ctx, d.Level, d.Amount.InexactFloat64())
	}

	log.Info("commission distributed",
		zap.String("pool", pool.String()),
		zap.Int("distributed_count", result.DistributedCount),
		zap.String("total_distributed", result.TotalDistributed.String()),
	)
	return result, nil
}

func (s *Service) replay(ctx context.Context, log *zap.Logger, result domain.DistributeResult) domain.DistributeResult {
	log.Info("commission already distributed")
	s.obsMetrics.RecordDistribution(ctx, "replayed")
	result.AlreadyDistributed = true
	return result
}

// lockOrder takes the per-order distribution lock. A lock backend failure is
// logged and the run proceeds; the in-transaction record check and the unique
// (order_id, level) index still prevent double payment.
func (s *Service) lockOrder(ctx context.Context, log *zap.Logger, orderID string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	token, ok, err := s.locker.TryLockOrder(lockCtx, orderID)
	if err != nil {
		log.Warn("distribution lock unavailable", zap.Error(err))
		return noop, nil
	}
	if !ok {
		return noop, domain.ErrDistributionInProgress
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockTimeout)
		defer cancel()
		if err := s.locker.ReleaseOrder(releaseCtx, orderID, token); err != nil {
			log.Warn("failed to release distribution lock", zap.Error(err))
		}
	}, nil
}

func (s *Service) ListByUser(ctx context.Context, req domain.ListCommissionRequest) (domain.ListCommissionResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.ListCommissionResponse{}, domain.ErrInvalidUserID
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListCommissionResponse{}, err
	}
	limit := pagination.Pagination{PageSize: req.PageSize}.Size()

	items, err := s.repo.ListByUser(ctx, s.db, userID, cursor, limit+1)
	if err != nil {
		return domain.ListCommissionResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(record domain.CommissionRecord) pagination.Cursor {
		return pagination.Cursor{ID: record.ID.String(), CreatedAt: record.CreatedAt}
	})
	if items == nil {
		items = []domain.CommissionRecord{}
	}
	return domain.ListCommissionResponse{PageInfo: pageInfo, Commissions: items}, nil
}

func (s *Service) SettlePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	if createdBefore.IsZero() {
		return 0, errors.New("settlement cutoff is required")
	}
	count, err := s.repo.ApprovePending(ctx, s.db, createdBefore, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("commissions settled",
			zap.Int64("count", count),
			zap.Time("created_before", createdBefore),
		)
	}
	s.obsMetrics.RecordSettlement(ctx, count)
	return count, nil
}
