package services

import (
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

// JobNotifier observes job lifecycle transitions.
type JobNotifier interface {
	JobCreated(job *types.JobRun)
	JobProgress(job *types.JobRun, stage string, progress int, message string)
	JobFailed(job *types.JobRun, stage string, errorMessage string)
	JobDone(job *types.JobRun)
}

// Wakeup is a coalescing signal: any number of Notify calls before a
// receive collapse into one.
type Wakeup struct {
	ch chan struct{}
}

func NewWakeup() *Wakeup {
	return &Wakeup{ch: make(chan struct{}, 1)}
}

func (w *Wakeup) Notify() {
	if w == nil {
		return
	}
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *Wakeup) C() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.ch
}

type jobNotifier struct {
	log  *logger.Logger
	wake *Wakeup
}

// NewJobNotifier logs lifecycle events and pokes the local worker pool when
// new work lands.
func NewJobNotifier(baseLog *logger.Logger, wake *Wakeup) JobNotifier {
	return &jobNotifier{log: baseLog.With("service", "JobNotifier"), wake: wake}
}

func (n *jobNotifier) JobCreated(job *types.JobRun) {
	if n == nil || job == nil {
		return
	}
	n.log.Debug("job created", "job_id", job.ID, "job_type", job.JobType)
	n.wake.Notify()
}

func (n *jobNotifier) JobProgress(job *types.JobRun, stage string, progress int, message string) {
	if n == nil || job == nil {
		return
	}
	n.log.Debug("job progress", "job_id", job.ID, "job_type", job.JobType, "stage", stage, "progress", progress, "message", message)
}

func (n *jobNotifier) JobFailed(job *types.JobRun, stage string, errorMessage string) {
	if n == nil || job == nil {
		return
	}
	n.log.Warn("job failed", "job_id", job.ID, "job_type", job.JobType, "stage", stage, "attempts", job.Attempts, "error", errorMessage)
}

func (n *jobNotifier) JobDone(job *types.JobRun) {
	if n == nil || job == nil {
		return
	}
	n.log.Info("job done", "job_id", job.ID, "job_type", job.JobType, "attempts", job.Attempts)
}
