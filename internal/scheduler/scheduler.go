package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/triviabees/internal/clock"
	commissiondomain "github.com/smallbiznis/triviabees/internal/commission/domain"
	"github.com/smallbiznis/triviabees/internal/config"
	obscontext "github.com/smallbiznis/triviabees/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const jobSettleCommissions = "settle_commissions"

type Params struct {
	fx.In

	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Rewards       *config.RewardsConfigHolder
	CommissionSvc commissiondomain.Service
	Config        Config `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	rewards       *config.RewardsConfigHolder
	commissionSvc commissiondomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.CommissionSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		rewards:       p.Rewards,
		commissionSvc: p.CommissionSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)

	err := fn(ctx)
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every scheduled job a single time.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, jobSettleCommissions, s.cfg.JobTimeout, s.SettleCommissionsJob)
}

// SettleCommissionsJob approves pending commissions that have outlived the
// hold period. The hold period is read on every run so config reloads apply.
func (s *Scheduler) SettleCommissionsJob(ctx context.Context) error {
	hold := s.rewards.Get().Settlement.HoldPeriod
	cutoff := s.clock.Now().Add(-hold)

	count, err := s.commissionSvc.SettlePending(ctx, cutoff)
	if err != nil {
		return err
	}
	jobRunFromContext(ctx).AddProcessed(int(count))
	return nil
}
