package overduescan

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
	"github.com/yungbote/library-backend/internal/temporalx"
)

// Runner hosts the Temporal worker for the overdue-scan workflow and keeps
// its Schedule registered.
type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	cfg  temporalx.Config
	jobs services.JobService
}

func NewRunner(baseLog *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, jobs services.JobService) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if jobs == nil {
		return nil, fmt.Errorf("temporal runner missing job service")
	}
	return &Runner{
		log:  baseLog.With("component", "TemporalOverdueScan"),
		tc:   tc,
		cfg:  cfg,
		jobs: jobs,
	}, nil
}

func (r *Runner) register(w worker.Registry) {
	acts := &Activities{Log: r.log, Jobs: r.jobs}
	w.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(acts.EnqueueScan, activity.RegisterOptions{Name: ActivityEnqueue})
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := EnsureSchedule(ctx, r.log, r.tc, r.cfg); err != nil {
		return err
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     2,
		MaxConcurrentWorkflowTaskExecutionSize: 2,
	})
	r.register(w)
	if err := w.Start(); err != nil {
		return fmt.Errorf("start temporal worker: %w", err)
	}
	r.log.Info("Temporal worker started", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)
	<-ctx.Done()
	w.Stop()
	return nil
}
