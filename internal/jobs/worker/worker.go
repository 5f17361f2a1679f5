// Package worker drains job_run with a small pool of pollers.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/library-backend/internal/data/repos"
	"github.com/yungbote/library-backend/internal/data/repos/jobs"
	"github.com/yungbote/library-backend/internal/jobs/runtime"
	"github.com/yungbote/library-backend/internal/observability"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/envutil"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

type Config struct {
	Concurrency  int           `yaml:"concurrency"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	StaleRunning time.Duration `yaml:"stale_running"`
}

// ConfigFromEnv overlays WORKER_* variables on base, then fills defaults.
func ConfigFromEnv(base Config) Config {
	c := base.withDefaults()
	c.Concurrency = envutil.Int("WORKER_CONCURRENCY", c.Concurrency)
	c.PollInterval = envutil.Duration("WORKER_POLL_INTERVAL", c.PollInterval)
	c.MaxAttempts = envutil.Int("WORKER_MAX_ATTEMPTS", c.MaxAttempts)
	c.RetryDelay = envutil.Duration("WORKER_RETRY_DELAY", c.RetryDelay)
	c.StaleRunning = envutil.Duration("WORKER_STALE_RUNNING", c.StaleRunning)
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 10 * time.Minute
	}
	return c
}

func (c Config) policy() jobs.ClaimPolicy {
	return jobs.ClaimPolicy{MaxAttempts: c.MaxAttempts, RetryDelay: c.RetryDelay, StaleAfter: c.StaleRunning}
}

// Worker runs claimed jobs through the registry. Delivery is at-least-once:
// a run whose worker died is reclaimed after its heartbeat goes stale.
type Worker struct {
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	wake     *services.Wakeup
	cfg      Config
}

func NewWorker(baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, wake *services.Wakeup, cfg Config) *Worker {
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		wake:     wake,
		cfg:      cfg.withDefaults(),
	}
}

// Run polls until ctx ends. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Job worker pool starting", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	g, gctx := errgroup.WithContext(ctx)
	for id := 1; id <= w.cfg.Concurrency; id++ {
		g.Go(func() error {
			w.poll(gctx, id)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) poll(ctx context.Context, id int) {
	log := w.log.With("worker_id", id)
	tick := time.NewTicker(w.cfg.PollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Worker loop stopped")
			return
		case <-tick.C:
		case <-w.wake.C():
		}
		if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Claiming job failed", "error", err)
		}
	}
}

// Drain runs jobs until nothing is claimable and returns how many ran.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	var n int
	for ctx.Err() == nil {
		ran, err := w.RunOnce(ctx)
		if err != nil || !ran {
			return n, err
		}
		n++
	}
	return n, nil
}

// RunOnce claims at most one job and runs it to a terminal state.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.Claim(dbctx.Context{Ctx: ctx}, w.cfg.policy())
	if err != nil || job == nil {
		return false, err
	}

	started := time.Now()
	jc := runtime.NewContext(ctx, job, w.repo, w.notify)
	w.dispatch(jc)
	observability.Current().ObserveJob(job.JobType, job.Status, time.Since(started))
	return true, nil
}

func (w *Worker) dispatch(jc *runtime.Context) {
	job := jc.Job
	log := w.log.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		log.Warn("No handler registered for job_type")
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}

	stop := w.keepAlive(jc)
	defer stop()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job handler panic", "panic", r)
			jc.Fail("panic", fmt.Errorf("panic: %v", r))
		}
	}()

	if err := h.Run(jc); err != nil {
		jc.Fail("run", err)
		return
	}
	if !jc.Terminal() {
		jc.Succeed("done", nil)
	}
}

// keepAlive heartbeats the job until the returned stop func is called.
func (w *Worker) keepAlive(jc *runtime.Context) (stop func()) {
	every := w.cfg.StaleRunning / 3
	if every <= 0 {
		every = time.Minute
	}
	ctx, cancel := context.WithCancel(jc.Ctx)
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := w.repo.Heartbeat(dbctx.Context{Ctx: ctx}, jc.Job.ID); err != nil && ctx.Err() == nil {
					w.log.Warn("Job heartbeat failed", "job_id", jc.Job.ID, "error", err)
				}
			}
		}
	}()
	return cancel
}
