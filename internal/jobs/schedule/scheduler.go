package schedule

import (
	"context"
	"time"

	redisclient "github.com/yungbote/library-backend/internal/clients/redis"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/envutil"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

type Config struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	// RunOnStart fires one tick as soon as Run begins.
	RunOnStart bool `yaml:"run_on_start"`
}

func ConfigFromEnv(base Config) Config {
	if base.Interval <= 0 {
		base.Interval = 24 * time.Hour
	}
	return Config{
		Enabled:    envutil.Bool("OVERDUE_SCAN_ENABLED", base.Enabled),
		Interval:   envutil.Duration("OVERDUE_SCAN_INTERVAL", base.Interval),
		RunOnStart: envutil.Bool("OVERDUE_SCAN_ON_START", base.RunOnStart),
	}
}

// Scheduler enqueues an overdue_scan job once per interval. With a shared
// locker only one replica enqueues per period.
type Scheduler struct {
	log    *logger.Logger
	jobs   services.JobService
	locker redisclient.Locker
	cfg    Config
	now    func() time.Time
}

func NewScheduler(baseLog *logger.Logger, jobs services.JobService, locker redisclient.Locker, cfg Config, now func() time.Time) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if locker == nil {
		locker = redisclient.NewLocalLocker()
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		log:    baseLog.With("component", "OverdueScheduler"),
		jobs:   jobs,
		locker: locker,
		cfg:    cfg,
		now:    now,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("overdue scan scheduler started", "interval", s.cfg.Interval.String())
	if s.cfg.RunOnStart {
		s.tick(ctx)
	}
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn("overdue scan trigger failed", "error", err)
	}
}

// Tick enqueues a scan for the current period unless another replica
// already did or a scan is still pending.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	period := s.now().UTC().Truncate(s.cfg.Interval)
	key := "overdue_scan:" + period.Format(time.RFC3339)

	// The lease is never released; it expires with the period.
	_, ok, err := s.locker.TryLock(ctx, key, s.cfg.Interval)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Debug("overdue scan already triggered for period", "period", period)
		return false, nil
	}

	job, created, err := s.jobs.EnqueueOverdueScanIfNeeded(dbctx.Context{Ctx: ctx}, "schedule")
	if err != nil {
		return false, err
	}
	if created {
		s.log.Info("overdue scan enqueued", "job_id", job.ID, "period", period)
	}
	return created, nil
}
