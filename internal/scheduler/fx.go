package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

// NewCron builds the cron runner with the scheduler's jobs registered.
// Overlapping runs are skipped and panics are recovered.
func NewCron(sched *Scheduler, ctx context.Context) (*cron.Cron, error) {
	logger := cronLogger{log: sched.log.Sugar()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(sched.cfg.Schedule, func() {
		if err := sched.RunOnce(ctx); err != nil {
			sched.log.Warn("scheduler run failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func NewScheduler(lc fx.Lifecycle, sched *Scheduler) error {
	if !sched.cfg.Enabled {
		sched.log.Info("commission settlement disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c, err := NewCron(sched, ctx)
	if err != nil {
		cancel()
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			sched.log.Info("settlement scheduled", zap.String("schedule", sched.cfg.Schedule))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-c.Stop().Done():
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return nil
}
