package overduescan

import (
	"context"
	"fmt"

	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

type Activities struct {
	Log  *logger.Logger
	Jobs services.JobService
}

// EnqueueScan queues an overdue_scan job unless one is already pending. The
// scan itself runs on the job worker pool.
func (a *Activities) EnqueueScan(ctx context.Context, trigger string) (EnqueueResult, error) {
	if a == nil || a.Jobs == nil {
		return EnqueueResult{}, fmt.Errorf("overduescan: activity not configured")
	}
	job, created, err := a.Jobs.EnqueueOverdueScanIfNeeded(dbctx.Context{Ctx: ctx}, trigger)
	if err != nil {
		return EnqueueResult{}, err
	}
	if !created {
		a.Log.Info("overdue scan already pending; skipping")
		return EnqueueResult{}, nil
	}
	return EnqueueResult{JobID: job.ID.String(), Created: true}, nil
}
