package overduescan

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/temporalx"
)

func ScheduleOptions(cfg temporalx.Config) temporalsdkclient.ScheduleOptions {
	return temporalsdkclient.ScheduleOptions{
		ID: cfg.ScheduleID,
		Spec: temporalsdkclient.ScheduleSpec{
			CronExpressions: []string{cfg.ScanCron},
		},
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        cfg.ScheduleID + "-run",
			Workflow:  WorkflowName,
			TaskQueue: cfg.TaskQueue,
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	}
}

// EnsureSchedule registers the overdue-scan Schedule; an existing one is
// left as is.
func EnsureSchedule(ctx context.Context, log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config) error {
	if tc == nil {
		return fmt.Errorf("temporal client is not configured")
	}
	_, err := tc.ScheduleClient().Create(ctx, ScheduleOptions(cfg))
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		log.Debug("overdue scan schedule already registered", "schedule_id", cfg.ScheduleID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create schedule %s: %w", cfg.ScheduleID, err)
	}
	log.Info("overdue scan schedule registered", "schedule_id", cfg.ScheduleID, "cron", cfg.ScanCron)
	return nil
}
