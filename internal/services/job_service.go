package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/ctxutil"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

const (
	JobTypeLoanConfirmation = "loan_confirmation"
	JobTypeOverdueScan      = "overdue_scan"
	JobTypeOverdueReminder  = "overdue_reminder"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	// Dispatch wakes the worker pool for a job enqueued inside a transaction
	// once that transaction has committed.
	Dispatch(job *types.JobRun)
	EnqueueOverdueScanIfNeeded(dbc dbctx.Context, trigger string) (*types.JobRun, bool, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, notify JobNotifier) JobService {
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		repo:   repo,
		notify: notify,
	}
}

// Enqueue stores a queued job_run. The payload is copied and tagged with the
// request's trace ids. Outside a transaction the worker pool is woken at
// once; inside one the caller calls Dispatch after commit.
func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("enqueue: empty job_type")
	}
	raw, err := json.Marshal(withTraceIDs(dbc.Ctx, payload))
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: encode payload: %w", jobType, err)
	}

	now := time.Now().UTC()
	job := &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     types.JobStatusQueued,
		Stage:      "queued",
		Message:    "Queued",
		Payload:    raw,
		Result:     datatypes.JSON(`{}`),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}

	if isDBTransaction(dbc.Tx) {
		s.log.Debug("Job enqueued in transaction, dispatch deferred", "job_id", job.ID, "job_type", jobType)
		return job, nil
	}
	s.Dispatch(job)
	return job, nil
}

func withTraceIDs(ctx context.Context, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	td := ctxutil.GetTraceData(ctx)
	if td == nil {
		return out
	}
	for key, id := range map[string]string{"trace_id": td.TraceID, "request_id": td.RequestID} {
		if _, set := out[key]; !set && id != "" {
			out[key] = id
		}
	}
	return out
}

type txCommitter interface {
	Commit() error
	Rollback() error
}

// gorm.DB values are cloned freely, so pointer comparison cannot tell a
// transaction apart; the underlying pool type can.
func isDBTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(txCommitter)
	return ok
}

func (s *jobService) Dispatch(job *types.JobRun) {
	if s == nil || s.notify == nil || job == nil {
		return
	}
	s.notify.JobCreated(job)
}

// EnqueueOverdueScanIfNeeded queues a scan unless one is already queued or
// running. The check and the insert are separate statements, so two callers
// racing past the check can both enqueue; callers that need one scan per
// period serialize on a Locker or a Temporal schedule first.
func (s *jobService) EnqueueOverdueScanIfNeeded(dbc dbctx.Context, trigger string) (*types.JobRun, bool, error) {
	exists, err := s.repo.HasPending(dbc, JobTypeOverdueScan, "", nil)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, nil
	}
	job, err := s.Enqueue(dbc, JobTypeOverdueScan, "", nil, map[string]any{"trigger": trigger})
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	return s.repo.GetByID(dbc, jobID)
}
