package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

// ClaimPolicy decides which job_run rows a worker may pick up.
type ClaimPolicy struct {
	// MaxAttempts caps retries of failed rows.
	MaxAttempts int
	// RetryDelay is the minimum wait after a failure before a retry.
	RetryDelay time.Duration
	// StaleAfter is how long a running row may go without a heartbeat
	// before another worker takes it over.
	StaleAfter time.Duration
}

type JobRunRepo interface {
	Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	Claim(dbc dbctx.Context, policy ClaimPolicy) (*types.JobRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// Transition applies updates unless the row is in one of the blocked
	// statuses, and reports whether a row changed.
	Transition(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}, blocked ...string) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	// HasPending reports whether a queued or running job of jobType exists.
	// Empty entityType and nil entityID match any entity.
	HasPending(dbc dbctx.Context, jobType, entityType string, entityID *uuid.UUID) (bool, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *jobRunRepo) tx(dbc dbctx.Context) *gorm.DB { return dbc.Conn(r.db) }

func (r *jobRunRepo) rows(dbc dbctx.Context, id uuid.UUID) *gorm.DB {
	return r.tx(dbc).Model(&types.JobRun{}).Where("id = ?", id)
}

func (r *jobRunRepo) stamp(updates map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	if _, ok := out["updated_at"]; !ok {
		out["updated_at"] = r.now()
	}
	return out
}

func (r *jobRunRepo) Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	if len(jobs) == 0 {
		return jobs, nil
	}
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
	}
	if err := r.tx(dbc).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetByID returns nil, nil for an unknown id.
func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.JobRun
	res := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&job)
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, res.Error
	}
	return &job, nil
}

// Claim locks the oldest runnable row and flips it to running in the same
// transaction. Runnable means queued, failed with attempts left and past the
// retry delay, or running with a stale heartbeat. Postgres skips rows other
// workers hold; SQLite serializes writers instead.
func (r *jobRunRepo) Claim(dbc dbctx.Context, policy ClaimPolicy) (*types.JobRun, error) {
	now := r.now()
	var claimed *types.JobRun

	err := r.tx(dbc).Transaction(func(tx *gorm.DB) error {
		queued := tx.Where("status = ?", types.JobStatusQueued)
		retry := tx.Where("status = ? AND attempts < ?", types.JobStatusFailed, policy.MaxAttempts).
			Where("(last_error_at IS NULL OR last_error_at < ?)", now.Add(-policy.RetryDelay))
		stale := tx.Where("status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?",
			types.JobStatusRunning, now.Add(-policy.StaleAfter))

		var job types.JobRun
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(queued.Or(retry).Or(stale)).
			Order("created_at ASC").
			Take(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		err = tx.Model(&types.JobRun{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"status":       types.JobStatusRunning,
			"stage":        "running",
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
		if err != nil {
			return err
		}

		job.Status, job.Stage = types.JobStatusRunning, "running"
		job.Attempts++
		job.LockedAt, job.HeartbeatAt = &now, &now
		job.UpdatedAt = now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	return r.rows(dbc, id).Updates(r.stamp(updates)).Error
}

func (r *jobRunRepo) Transition(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}, blocked ...string) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	q := r.rows(dbc, id)
	if len(blocked) > 0 {
		q = q.Where("status NOT IN ?", blocked)
	}
	res := q.Updates(r.stamp(updates))
	return res.RowsAffected > 0, res.Error
}

// Heartbeat only touches rows still running, so a late beat cannot revive a
// finished job.
func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := r.now()
	return r.rows(dbc, id).
		Where("status = ?", types.JobStatusRunning).
		Updates(map[string]interface{}{"heartbeat_at": now, "updated_at": now}).Error
}

func (r *jobRunRepo) HasPending(dbc dbctx.Context, jobType, entityType string, entityID *uuid.UUID) (bool, error) {
	if jobType == "" {
		return false, nil
	}
	q := r.tx(dbc).Model(&types.JobRun{}).
		Where("job_type = ?", jobType).
		Where("status IN ?", []string{types.JobStatusQueued, types.JobStatusRunning})
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if entityID != nil && *entityID != uuid.Nil {
		q = q.Where("entity_id = ?", *entityID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
